//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/auth"
	"context"
)

// ITokenVerifier validates a signed credential and extracts its claims.
type ITokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// IDeliveryGateway pushes one payload to one live connection.
// A push is best-effort and at-most-once; the returned error reports
// that this single target is gone or unreachable, nothing more.
type IDeliveryGateway interface {
	Push(ctx context.Context, connectionID string, payload any) error
}
