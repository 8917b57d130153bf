package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"oldb/pkg/logger"
	"oldb/pkg/web"
)

type contextKey string

const UserKey contextKey = "user"

const (
	RoleAdministrator = "administrator"
	RoleContributor   = "contributor"
	RoleViewer        = "viewer"
)

// Claims is the JWT payload attached to authenticated requests.
type Claims struct {
	UserID       int    `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Unrestricted bool   `json:"unrestricted"`
	jwt.RegisteredClaims
}

// GenerateToken signs a 24h HS256 token for the given user.
func GenerateToken(secret string, userID int, email, role string, unrestricted bool) (string, error) {
	claims := Claims{
		UserID:       userID,
		Email:        email,
		Role:         role,
		Unrestricted: unrestricted,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

// Auth validates the bearer token and stores the claims on the request
// context. WebSocket clients cannot set headers, so a token query param is
// accepted as a fallback.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				authHeader := r.Header.Get("Authorization")
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}
			if tokenString == "" {
				web.WriteError(w, http.StatusUnauthorized, "Authentication is required to access this resource.")
				return
			}

			claims, err := ValidateToken(secret, tokenString)
			if err != nil {
				logger.Sugar.Infof("Invalid token: %v", err)
				web.WriteError(w, http.StatusUnauthorized, "Invalid or expired token.")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler to the given roles. 403 otherwise.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUser(r.Context())
			if claims == nil {
				web.WriteError(w, http.StatusUnauthorized, "Authentication is required to access this resource.")
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			web.WriteError(w, http.StatusForbidden,
				"You are not authorized to access this resource.")
		})
	}
}

func GetUser(ctx context.Context) *Claims {
	claims, _ := ctx.Value(UserKey).(*Claims)
	return claims
}
