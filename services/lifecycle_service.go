package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"fmt"
	"log/slog"
	"net/http"
)

// Lifecycle event types raised by the transport layer.
const (
	EventConnect    = "CONNECT"
	EventDisconnect = "DISCONNECT"
)

// Event is one transport-level connection event. ConnectionID is
// supplied by the transport itself; an empty value is a transport bug,
// not a client error.
type Event struct {
	Type         string
	ConnectionID string
	Token        string
}

type ILifecycleService interface {
	HandleEvent(event Event) Response
}

// LifecycleService orchestrates CONNECT and DISCONNECT events against
// the token verifier and the connection registry.
type LifecycleService struct {
	log         *slog.Logger
	verifier    contract.ITokenVerifier
	connections repositories.IConnectionRepository
}

func NewLifecycleService(log *slog.Logger, verifier contract.ITokenVerifier,
	connections repositories.IConnectionRepository) *LifecycleService {
	return &LifecycleService{log: log, verifier: verifier, connections: connections}
}

// HandleEvent routes one lifecycle event. Anything other than CONNECT
// or DISCONNECT is a server error: the transport should never have
// forwarded it here.
func (s *LifecycleService) HandleEvent(event Event) Response {
	switch event.Type {
	case EventConnect:
		return s.connect(event)
	case EventDisconnect:
		return s.disconnect(event)
	default:
		s.log.Error(fmt.Sprintf("Connection manager received unrecognized eventType '%s'", event.Type))
		return NewResponse(http.StatusInternalServerError, "Unrecognized eventType.")
	}
}

func (s *LifecycleService) connect(event Event) Response {
	s.log.Info("Connect requested", "connection_id", event.ConnectionID)

	if event.ConnectionID == "" {
		s.log.Error("Failed: connectionId value not set.")
		return NewResponse(http.StatusInternalServerError, "connectionId value not set.")
	}

	if event.Token == "" {
		s.log.Debug("Failed: token query parameter not provided.")
		return NewResponse(http.StatusBadRequest, "token query parameter not provided.")
	}

	claims, err := s.verifier.Verify(event.Token)
	if err != nil {
		s.log.Debug("Failed: Token verification failed.")
		return NewResponse(http.StatusBadRequest, "Token verification failed.")
	}
	s.log.Info(fmt.Sprintf("Verified JWT for '%s'", claims.Username))

	err = s.connections.Register(domain.Connection{ID: event.ConnectionID, Username: claims.Username})
	if err != nil {
		s.log.Error("Failed to register connection", "connection_id", event.ConnectionID, "error", err)
		return NewResponse(http.StatusInternalServerError, "Failed to register connection.")
	}
	return NewResponse(http.StatusOK, "Connect successful.")
}

// disconnect unregisters unconditionally and never inspects
// authentication. Repeating it for an absent connection yields the
// same result as the first call.
func (s *LifecycleService) disconnect(event Event) Response {
	s.log.Info("Disconnect requested", "connection_id", event.ConnectionID)

	if event.ConnectionID == "" {
		s.log.Error("Failed: connectionId value not set.")
		return NewResponse(http.StatusInternalServerError, "connectionId value not set.")
	}

	if err := s.connections.Unregister(event.ConnectionID); err != nil {
		s.log.Error("Failed to unregister connection", "connection_id", event.ConnectionID, "error", err)
		return NewResponse(http.StatusInternalServerError, "Failed to unregister connection.")
	}
	return NewResponse(http.StatusOK, "Disconnect successful.")
}
