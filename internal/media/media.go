// Package media talks to the external video provider that hosts consultation
// rooms. The core never carries media itself; it only asks for a room and a
// join token.
package media

import (
	"context"
	"errors"
)

var ErrProviderUnavailable = errors.New("media provider unavailable")

// Provider allocates (or reuses) a room and returns a join token for the
// creating user.
type Provider interface {
	CreateOrGetRoom(ctx context.Context, roomID, creatorUserID string) (string, error)
}
