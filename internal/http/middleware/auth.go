package middleware

import (
	"context"
	"net/http"
	"strings"

	"placementcell/internal/common"
	"placementcell/internal/domain/user"
	"placementcell/internal/http/response"
	"placementcell/internal/security"
)

type contextKey string

const ContextActorKey contextKey = "actor"

type AuthMiddleware struct {
	jwt *security.JWTProvider
}

func NewAuthMiddleware(jwt *security.JWTProvider) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Error(w, common.NewError(common.CodeUnauthorized, "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid authorization header", nil))
			return
		}
		claims, err := m.jwt.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid token", err))
			return
		}
		subject := claims.UserID
		if subject == "" {
			subject = claims.Sub
		}
		userID, err := common.ParseUUID(subject)
		if err != nil {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid user id", err))
			return
		}
		role := user.Role(strings.ToLower(strings.TrimSpace(claims.Role)))
		if !role.Valid() {
			response.Error(w, common.NewError(common.CodeUnauthorized, "invalid role", nil))
			return
		}
		actor := user.Actor{UserID: userID, Role: role}
		if claims.Dept != "" {
			if deptID, err := common.ParseUUID(claims.Dept); err == nil {
				actor.DepartmentID = deptID
			}
		}
		ctx := context.WithValue(r.Context(), ContextActorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				response.Error(w, common.NewError(common.CodeUnauthorized, "authentication required", nil))
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Error(w, common.NewError(common.CodeForbidden, "insufficient role", nil))
		})
	}
}

func ActorFromContext(ctx context.Context) (user.Actor, bool) {
	actor, ok := ctx.Value(ContextActorKey).(user.Actor)
	return actor, ok
}

// WithActor is used by tests and internal callers that already resolved the caller.
func WithActor(ctx context.Context, actor user.Actor) context.Context {
	return context.WithValue(ctx, ContextActorKey, actor)
}
