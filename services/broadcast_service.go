package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/samber/lo"
)

type IBroadcastService interface {
	SendMessage(ctx context.Context, rawBody []byte) Response
	RecentMessages(ctx context.Context, connectionID string) Response
	Ping() Response
	Unrecognized() Response
}

// BroadcastService orchestrates message intake: validate, persist,
// enumerate the registry, fan out through the delivery gateway and
// aggregate the result.
type BroadcastService struct {
	log         *slog.Logger
	verifier    contract.ITokenVerifier
	connections repositories.IConnectionRepository
	messages    repositories.IMessageRepository
	gateway     contract.IDeliveryGateway
}

func NewBroadcastService(log *slog.Logger, verifier contract.ITokenVerifier,
	connections repositories.IConnectionRepository, messages repositories.IMessageRepository,
	gateway contract.IDeliveryGateway) *BroadcastService {
	return &BroadcastService{
		log:         log,
		verifier:    verifier,
		connections: connections,
		messages:    messages,
		gateway:     gateway,
	}
}

// parseBody decodes the raw payload into a field map. A payload that
// cannot be decoded at all degrades to an empty map, so the caller
// fails later on the first missing field. Only a well-formed payload
// that is not an object is rejected here.
func (s *BroadcastService) parseBody(rawBody []byte) (map[string]json.RawMessage, bool) {
	if len(rawBody) == 0 {
		rawBody = []byte("{}")
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rawBody, &body); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, false
		}
		s.log.Debug("Event body could not be JSON decoded.")
		return map[string]json.RawMessage{}, true
	}
	if body == nil {
		// "null" is well-formed but not an object
		return nil, false
	}
	return body, true
}

// SendMessage handles one inbound message-send request end to end.
// The reported count is the number of connections targeted at
// enumeration time, not the number of successful deliveries.
func (s *BroadcastService) SendMessage(ctx context.Context, rawBody []byte) Response {
	s.log.Info("Message sent on WebSocket.")

	body, ok := s.parseBody(rawBody)
	if !ok {
		s.log.Debug("Failed: Invalid body format")
		return NewResponse(http.StatusBadRequest, "Invalid body format")
	}

	for _, attribute := range []string{"token", "content"} {
		if _, present := body[attribute]; !present {
			s.log.Debug(fmt.Sprintf("Failed: '%s' not in message.", attribute))
			return NewResponse(http.StatusBadRequest, fmt.Sprintf("'%s' not in message.", attribute))
		}
	}

	// A non-string token or content is reported exactly like a bad
	// signature, not as a distinct shape error.
	var token string
	if err := json.Unmarshal(body["token"], &token); err != nil {
		s.log.Debug("Failed: Token verification failed.")
		return NewResponse(http.StatusBadRequest, "Token verification failed.")
	}

	claims, err := s.verifier.Verify(token)
	if err != nil {
		s.log.Debug("Failed: Token verification failed.")
		return NewResponse(http.StatusBadRequest, "Token verification failed.")
	}
	s.log.Info(fmt.Sprintf("Verified JWT for '%s'", claims.Username))

	var content string
	if err = json.Unmarshal(body["content"], &content); err != nil {
		s.log.Debug("Failed: Token verification failed.")
		return NewResponse(http.StatusBadRequest, "Token verification failed.")
	}

	message, err := s.messages.Append(claims.Username, content)
	if err != nil {
		s.log.Error("Failed to store message", "error", err)
		return NewResponse(http.StatusInternalServerError, "Failed to store message.")
	}

	connections, err := s.connections.ListAll()
	if err != nil {
		s.log.Error("Failed to list connections", "error", err)
		return NewResponse(http.StatusInternalServerError, "Failed to list connections.")
	}

	delivery := domain.Delivery{
		Messages: []domain.DeliveredMessage{{Username: message.Username, Content: message.Content}},
	}
	count := len(connections)
	s.fanout(ctx, connections, delivery)

	return NewResponse(http.StatusOK, fmt.Sprintf("Message sent to %d connections.", count))
}

// fanout pushes one delivery to every enumerated connection, one
// goroutine per target. A failed push is logged and skipped; it never
// blocks the remaining targets.
func (s *BroadcastService) fanout(ctx context.Context, connections []domain.Connection, delivery domain.Delivery) {
	var wg sync.WaitGroup
	for _, connection := range connections {
		wg.Add(1)
		go func(target domain.Connection) {
			defer wg.Done()
			if err := s.gateway.Push(ctx, target.ID, delivery); err != nil {
				s.log.Warn("Delivery failed, skipping recipient",
					"connection_id", target.ID, "error", err)
			}
		}(connection)
	}
	wg.Wait()
}

// RecentMessages replays the shared room's history to one connection:
// fetch in store order, map to the wire shape, reverse, push.
func (s *BroadcastService) RecentMessages(ctx context.Context, connectionID string) Response {
	s.log.Info(fmt.Sprintf("Retrieving most recent messages for CID '%s'", connectionID))

	if connectionID == "" {
		s.log.Error("Failed: connectionId value not set.")
		return NewResponse(http.StatusInternalServerError, "connectionId value not set.")
	}

	messages, err := s.messages.ListRoom(domain.DefaultRoom)
	if err != nil {
		s.log.Error("Failed to fetch messages", "error", err)
		return NewResponse(http.StatusInternalServerError, "Failed to fetch messages.")
	}

	delivered := lo.Map(messages, func(item domain.Message, _ int) domain.DeliveredMessage {
		return domain.DeliveredMessage{Username: item.Username, Content: item.Content}
	})
	delivered = lo.Reverse(delivered)

	if err = s.gateway.Push(ctx, connectionID, domain.Delivery{Messages: delivered}); err != nil {
		s.log.Error("Failed to send recent messages", "connection_id", connectionID, "error", err)
		return NewResponse(http.StatusInternalServerError, "Failed to send recent messages.")
	}

	return NewResponse(http.StatusOK, fmt.Sprintf("Sent recent messages to '%s'.", connectionID))
}

// Ping touches no state.
func (s *BroadcastService) Ping() Response {
	s.log.Info("Ping requested.")
	return NewResponse(http.StatusOK, "PONG!")
}

// Unrecognized handles an in-band action no handler claims.
func (s *BroadcastService) Unrecognized() Response {
	s.log.Info("Unrecognized WebSocket action received.")
	return NewResponse(http.StatusBadRequest, "Unrecognized WebSocket action.")
}
