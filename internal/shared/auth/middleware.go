package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/impulso-digital/plataforma/internal/shared/config"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

type contextKey string

const (
	ActorContextKey contextKey = "actor"
)

// Actor is the authenticated caller extracted from JWT claims. The role
// is carried as the raw claim string; domain handlers validate it
// against the role catalog, which is the single authority on known
// roles.
type Actor struct {
	ID        types.ID        `json:"sub"`
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	Territory types.Territory `json:"territory"`
	SessionID string          `json:"session_id"`
}

// Claims extends JWT claims with platform-specific data
type Claims struct {
	jwt.RegisteredClaims
	Name         string `json:"name,omitempty"`
	Role         string `json:"role"`
	Region       string `json:"region,omitempty"`
	Department   string `json:"department,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	Locality     string `json:"locality,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// Middleware creates JWT authentication middleware
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := parts[1]

			token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(cfg.Issuer))

			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			if claims.Role == "" {
				writeError(w, http.StatusUnauthorized, "token carries no role")
				return
			}

			id, err := types.ParseID(claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid subject")
				return
			}

			actor := &Actor{
				ID:   id,
				Name: claims.Name,
				Role: claims.Role,
				Territory: types.Territory{
					Region:       claims.Region,
					Department:   claims.Department,
					Municipality: claims.Municipality,
					Locality:     claims.Locality,
				},
				SessionID: claims.SessionID,
			}

			ctx := context.WithValue(r.Context(), ActorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor extracts the actor from request context
func GetActor(ctx context.Context) *Actor {
	actor, ok := ctx.Value(ActorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// WithActor places an actor on the context. Test helper and realtime
// handshake use; HTTP requests go through Middleware.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}

// IssueToken signs a token for the given actor. Used by the dev login
// endpoint and tests; production deployments issue tokens from the
// identity provider.
func IssueToken(cfg config.AuthConfig, actor *Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:         actor.Name,
		Role:         actor.Role,
		Region:       actor.Territory.Region,
		Department:   actor.Territory.Department,
		Municipality: actor.Territory.Municipality,
		Locality:     actor.Territory.Locality,
		SessionID:    actor.SessionID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
