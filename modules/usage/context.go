package usage

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// UserIDResolver extracts the verified caller identity from a request.
// Authentication itself happens upstream; this module only consumes its
// result. Returning an error yields a 401 for the request.
type UserIDResolver func(r *http.Request) (uuid.UUID, error)

// VerifiedUserHeader is the header the auth proxy sets after verifying the
// caller. HeaderResolver trusts it; never expose this module without the
// proxy in front.
const VerifiedUserHeader = "X-Verified-User"

var ErrUnauthenticated = errors.New("usage: no verified user id on request")

// HeaderResolver resolves the caller from the verified-user header.
func HeaderResolver(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(VerifiedUserHeader)
	if raw == "" {
		return uuid.Nil, ErrUnauthenticated
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Join(ErrUnauthenticated, err)
	}
	return userID, nil
}

type contextKey struct{}

var userIDKey = contextKey{}

func setUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func userIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
