// Package protocol turns wire lines into domain messages and back.
package protocol

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode renders msg as a single JSON line, without terminator.
func Encode(msg domain.Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return string(data), nil
}

// Decode parses one line. Unknown fields are ignored.
// A line that is not a JSON object or carries no type is rejected.
func Decode(line string) (domain.Message, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return domain.Message{}, fmt.Errorf("%w: empty line", errors.ErrInvalidMessage)
	}
	var msg domain.Message
	if err := json.UnmarshalFromString(trimmed, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %s", errors.ErrInvalidMessage, err.Error())
	}
	if msg.Type == "" {
		return domain.Message{}, fmt.Errorf("%w: missing type", errors.ErrInvalidMessage)
	}
	return msg, nil
}
