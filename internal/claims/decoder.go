// Package claims reads the payload of an access token without verifying its signature.
// The server re-validates the token on every request, the claims only drive routing decisions
// on the client and must never be used to enforce authorization.
package claims

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrDecode = errors.New("decode token")

var (
	subjectClaims = []string{"sub", "userId", "id"}
	roleClaims    = []string{"roles", "role"}
)

type (
	Claims struct {
		SubjectID *int64
		Roles     []string
		ExpiresAt *time.Time
	}

	Decoder interface {
		Decode(token string) (Claims, error)
	}

	decoder struct {
		parser *jwt.Parser
	}
)

func NewDecoder() Decoder {
	return decoder{parser: jwt.NewParser(jwt.WithJSONNumber())}
}

// Expired reports whether the token is past its expiry at now, tokens without expiry never expire.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

func (d decoder) Decode(token string) (Claims, error) {
	mapClaims := jwt.MapClaims{}
	_, _, err := d.parser.ParseUnverified(token, mapClaims)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	expiresAt, err := parseExpiry(mapClaims)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return Claims{
		SubjectID: parseSubject(mapClaims),
		Roles:     parseRoles(mapClaims),
		ExpiresAt: expiresAt,
	}, nil
}

func parseExpiry(c jwt.MapClaims) (*time.Time, error) {
	raw, ok := c["exp"]
	if !ok || raw == nil {
		return nil, nil
	}

	exp, err := c.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim %v: %w", raw, err)
	}
	if exp == nil {
		return nil, nil
	}

	t := exp.Time
	return &t, nil
}

func parseSubject(c jwt.MapClaims) *int64 {
	for _, name := range subjectClaims {
		var id int64
		var err error
		switch v := c[name].(type) {
		case json.Number:
			id, err = v.Int64()
		case string:
			id, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		default:
			continue
		}
		if err == nil {
			return &id
		}
	}

	return nil
}

// parseRoles accepts an array, a single string or a comma separated string.
// The first claim present wins, the result is never nil.
func parseRoles(c jwt.MapClaims) []string {
	for _, name := range roleClaims {
		raw, ok := c[name]
		if !ok || raw == nil {
			continue
		}

		switch v := raw.(type) {
		case []any:
			result := make([]string, 0, len(v))
			for _, item := range v {
				role, ok := item.(string)
				if !ok {
					continue
				}
				role = strings.TrimSpace(role)
				if role != "" {
					result = append(result, role)
				}
			}
			return result
		case string:
			return splitRoles(v)
		}
	}

	return []string{}
}

func splitRoles(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}

	return result
}
