// Package identity determines the effective user for a chat request.
package identity

import (
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrNoIdentity is returned when no identity source yields a user id. The
// message tells callers which mechanisms are accepted.
var ErrNoIdentity = errors.New("user_id is required: send it in the request body (recommended), provide a valid Bearer JWT, or set a user_id cookie")

// Resolver resolves user identifiers from request credentials.
type Resolver struct {
	secret []byte
}

// NewResolver creates a resolver verifying tokens with the shared secret.
func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// Resolve tries the Authorization header, then the body user id, then the
// cookie, in that order. A bad token never fails the request; it only
// disqualifies the token as an identity source.
func (r *Resolver) Resolve(authHeader, bodyUserID, cookieUserID string) (string, error) {
	if userID, err := r.fromBearer(authHeader); err == nil && userID != "" {
		return userID, nil
	} else if err != nil {
		// Deliberate fall-through: the next identity source is tried.
		slog.Debug("bearer_token_rejected", "error", err)
	}

	if bodyUserID = strings.TrimSpace(bodyUserID); bodyUserID != "" {
		return bodyUserID, nil
	}
	if cookieUserID = strings.TrimSpace(cookieUserID); cookieUserID != "" {
		return cookieUserID, nil
	}
	return "", ErrNoIdentity
}

// fromBearer decodes an `Authorization: Bearer <token>` value and extracts
// the user-identifier claim, accepting either claim spelling.
func (r *Resolver) fromBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", nil
	}
	raw := strings.TrimSpace(header[7:])

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}
	for _, claim := range []string{"userId", "user_id"} {
		if id, ok := claims[claim].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("token has no user identifier claim")
}
