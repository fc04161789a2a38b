package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

var ErrUnauthorized = errors.New("unauthorized")

// UserLookup is the part of the credential store the gate reads.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// Gate resolves the identity behind a bearer token.
type Gate struct {
	codec  *TokenCodec
	users  UserLookup
	logger *zap.Logger
}

func NewGate(codec *TokenCodec, users UserLookup, logger *zap.Logger) *Gate {
	return &Gate{codec: codec, users: users, logger: logger}
}

// Authenticate returns a fresh read of the identity named by the
// "Bearer <token>" header. Any missing, malformed, invalid or expired token,
// and a subject that no longer exists, yield ErrUnauthorized.
func (g *Gate) Authenticate(ctx context.Context, header string) (model.User, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return model.User{}, ErrUnauthorized
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return model.User{}, ErrUnauthorized
	}

	id, err := g.codec.Verify(token)
	if err != nil {
		return model.User{}, ErrUnauthorized
	}

	u, err := g.users.GetByID(ctx, id)
	if errors.Is(err, repo.ErrorNotFound) {
		return model.User{}, ErrUnauthorized
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load user %s: %w", id, err)
	}
	return u, nil
}

// Require rejects unauthenticated requests with 401 and stores the identity
// in the request context for downstream handlers.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if errors.Is(err, ErrUnauthorized) {
			respond.Error(w, r, http.StatusUnauthorized, "Not authorized. Please log in.")
			return
		}
		if err != nil {
			g.logger.Error("authentication failed", zap.Error(err))
			respond.Error(w, r, http.StatusInternalServerError, "Server error.")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

type ctxKey struct{}

func WithUser(ctx context.Context, u model.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the identity set by Gate.Require.
func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(model.User)
	return u, ok && u.ID != uuid.Nil
}
