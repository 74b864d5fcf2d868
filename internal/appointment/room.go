package appointment

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const roomAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newRoomID returns "ROOM-" followed by 12 characters of [0-9A-Z].
func newRoomID() (string, error) {
	id, err := gonanoid.Generate(roomAlphabet, 12)
	if err != nil {
		return "", err
	}
	return "ROOM-" + id, nil
}
