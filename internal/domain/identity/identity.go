// Package identity canonicalizes externally supplied user/channel
// identifiers. Every store write and every equality check between
// participants goes through Normalize first, so formatting differences
// (mention wrapping, zero padding) can never split one identity in two.
package identity

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("invalid identifier")

// Normalize returns the canonical form of a raw identifier: a decimal
// snowflake string with mention wrappers and leading zeros stripped.
// Empty or non-numeric input fails with ErrInvalid.
func Normalize(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if strings.HasPrefix(id, "<") && strings.HasSuffix(id, ">") {
		id = strings.TrimSuffix(strings.TrimPrefix(id, "<"), ">")
		id = strings.TrimPrefix(id, "@")
		id = strings.TrimPrefix(id, "#")
		id = strings.TrimPrefix(id, "!")
		id = strings.TrimPrefix(id, "&")
	}
	if id == "" {
		return "", ErrInvalid
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", ErrInvalid
		}
	}
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" {
		// all zeros collapses to the single digit
		return "0", nil
	}
	return trimmed, nil
}
