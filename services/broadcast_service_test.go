package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type broadcastFixture struct {
	service     *BroadcastService
	verifier    *mocks.MockITokenVerifier
	connections *mocks.MockIConnectionRepository
	messages    *mocks.MockIMessageRepository
	gateway     *mocks.MockIDeliveryGateway
}

func newBroadcastFixture(t *testing.T) broadcastFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := broadcastFixture{
		verifier:    mocks.NewMockITokenVerifier(ctrl),
		connections: mocks.NewMockIConnectionRepository(ctrl),
		messages:    mocks.NewMockIMessageRepository(ctrl),
		gateway:     mocks.NewMockIDeliveryGateway(ctrl),
	}
	f.service = NewBroadcastService(slog.New(slog.DiscardHandler),
		f.verifier, f.connections, f.messages, f.gateway)
	return f
}

func storedMessage(username, content string) domain.Message {
	return domain.Message{
		Room:     domain.DefaultRoom,
		ID:       uuid.New(),
		Username: username,
		Content:  content,
	}
}

func TestSendMessage_MissingToken(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	response := f.service.SendMessage(context.Background(), []byte(`{"content":"hi"}`))
	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("'token' not in message.", response.Body)
}

func TestSendMessage_MissingContent(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	response := f.service.SendMessage(context.Background(), []byte(`{"token":"abc"}`))
	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("'content' not in message.", response.Body)
}

func TestSendMessage_UndecodableBody_DegradesToMissingField(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	// A body that fails to decode behaves like an empty object, so the
	// first required field is reported missing.
	response := f.service.SendMessage(context.Background(), []byte(`{"token": "unterminated`))
	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("'token' not in message.", response.Body)
}

func TestSendMessage_NonObjectBody(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	for _, rawBody := range []string{`42`, `"a string"`, `null`, `[1,2]`} {
		response := f.service.SendMessage(context.Background(), []byte(rawBody))
		req.Equal(http.StatusBadRequest, response.StatusCode, "body %s", rawBody)
		req.Equal("Invalid body format", response.Body, "body %s", rawBody)
	}
}

func TestSendMessage_InvalidToken_NothingAppended(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	f.verifier.EXPECT().Verify("bad").Return(nil, fmt.Errorf("expired"))

	response := f.service.SendMessage(context.Background(), []byte(`{"token":"bad","content":"hi"}`))
	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("Token verification failed.", response.Body)
}

func TestSendMessage_NonStringContent_ReportedAsVerificationFailure(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	f.verifier.EXPECT().Verify("good").Return(&auth.Claims{Username: "alice"}, nil)

	response := f.service.SendMessage(context.Background(), []byte(`{"token":"good","content":{"nested":1}}`))
	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("Token verification failed.", response.Body)
}

func TestSendMessage_FansOutToEveryConnection(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	f.verifier.EXPECT().Verify("good").Return(&auth.Claims{Username: "alice"}, nil)
	f.messages.EXPECT().Append("alice", "hi").Return(storedMessage("alice", "hi"), nil)
	f.connections.EXPECT().ListAll().Return([]domain.Connection{
		{ID: "conn-1", Username: "alice"},
		{ID: "conn-2", Username: "bob"},
		{ID: "conn-3", Username: "clara"},
	}, nil)

	expected := domain.Delivery{Messages: []domain.DeliveredMessage{{Username: "alice", Content: "hi"}}}
	var mu sync.Mutex
	var pushed []string
	f.gateway.EXPECT().Push(gomock.Any(), gomock.Any(), expected).
		Do(func(_ context.Context, connectionID string, _ any) {
			mu.Lock()
			defer mu.Unlock()
			pushed = append(pushed, connectionID)
		}).Return(nil).Times(3)

	response := f.service.SendMessage(context.Background(), []byte(`{"token":"good","content":"hi"}`))
	req.Equal(http.StatusOK, response.StatusCode)
	req.Equal("Message sent to 3 connections.", response.Body)
	req.ElementsMatch([]string{"conn-1", "conn-2", "conn-3"}, pushed)
}

func TestSendMessage_OneFailingTargetDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	f.verifier.EXPECT().Verify("good").Return(&auth.Claims{Username: "alice"}, nil)
	f.messages.EXPECT().Append("alice", "hi").Return(storedMessage("alice", "hi"), nil)
	f.connections.EXPECT().ListAll().Return([]domain.Connection{
		{ID: "conn-1", Username: "alice"},
		{ID: "stale", Username: "ghost"},
		{ID: "conn-3", Username: "clara"},
	}, nil)

	f.gateway.EXPECT().Push(gomock.Any(), "conn-1", gomock.Any()).Return(nil)
	f.gateway.EXPECT().Push(gomock.Any(), "stale", gomock.Any()).
		Return(&errors.DeliveryError{ConnectionID: "stale", Err: errors.ErrUnknownConnection})
	f.gateway.EXPECT().Push(gomock.Any(), "conn-3", gomock.Any()).Return(nil)

	response := f.service.SendMessage(context.Background(), []byte(`{"token":"good","content":"hi"}`))
	req.Equal(http.StatusOK, response.StatusCode)
	// Count is measured at enumeration time, not after delivery.
	req.Equal("Message sent to 3 connections.", response.Body)
}

func TestSendMessage_StorageFailureAbortsBeforeFanout(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	f.verifier.EXPECT().Verify("good").Return(&auth.Claims{Username: "alice"}, nil)
	f.messages.EXPECT().Append("alice", "hi").
		Return(domain.Message{}, &errors.StorageError{Op: "append", Err: fmt.Errorf("backend down")})

	response := f.service.SendMessage(context.Background(), []byte(`{"token":"good","content":"hi"}`))
	req.Equal(http.StatusInternalServerError, response.StatusCode)
}

func TestRecentMessages_MissingConnectionID(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	response := f.service.RecentMessages(context.Background(), "")
	req.Equal(http.StatusInternalServerError, response.StatusCode)
	req.Equal("connectionId value not set.", response.Body)
}

func TestRecentMessages_ReversesFetchOrder(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	f.messages.EXPECT().ListRoom(domain.DefaultRoom).Return([]domain.Message{
		storedMessage("alice", "m1"),
		storedMessage("bob", "m2"),
		storedMessage("clara", "m3"),
	}, nil)

	expected := domain.Delivery{Messages: []domain.DeliveredMessage{
		{Username: "clara", Content: "m3"},
		{Username: "bob", Content: "m2"},
		{Username: "alice", Content: "m1"},
	}}
	f.gateway.EXPECT().Push(gomock.Any(), "conn-1", expected).Return(nil)

	response := f.service.RecentMessages(context.Background(), "conn-1")
	req.Equal(http.StatusOK, response.StatusCode)
	req.Equal("Sent recent messages to 'conn-1'.", response.Body)
}

func TestPing_TouchesNoState(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	// Every mock would fail the test on an unexpected call.
	response := f.service.Ping()
	req.Equal(http.StatusOK, response.StatusCode)
	req.Equal("PONG!", response.Body)
}

func TestUnrecognizedAction(t *testing.T) {
	req := require.New(t)
	f := newBroadcastFixture(t)

	response := f.service.Unrecognized()
	req.Equal(http.StatusBadRequest, response.StatusCode)
	req.Equal("Unrecognized WebSocket action.", response.Body)
}
