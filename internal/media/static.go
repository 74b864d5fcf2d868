package media

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Static issues locally signed tokens without contacting any provider. Used
// in development and tests.
type Static struct {
	secret []byte
}

func NewStatic(secret string) *Static {
	if secret == "" {
		secret = "dev-media-secret"
	}
	return &Static{secret: []byte(secret)}
}

func (s *Static) CreateOrGetRoom(_ context.Context, roomID, creatorUserID string) (string, error) {
	if roomID == "" || creatorUserID == "" {
		return "", fmt.Errorf("media: room id and creator are required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"room_id": roomID,
		"user_id": creatorUserID,
	})
	return token.SignedString(s.secret)
}
