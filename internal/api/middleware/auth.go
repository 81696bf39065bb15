package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gonsw/gonsw/internal/api/models"
	"github.com/gonsw/gonsw/internal/auth"
)

type deviceIDKey struct{}

// TokenValidator validates bearer tokens and returns the device they were issued to.
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

var errNoBearer = errors.New("invalid authorization header format")

// Auth rejects requests that do not carry a valid device bearer token and
// stores the device id on the request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, r, "missing authorization header")
				return
			}

			token, err := bearerToken(header)
			if err != nil {
				unauthorized(w, r, err.Error())
				return
			}

			deviceID, err := validator.ValidateAccessToken(token)
			if err != nil {
				unauthorized(w, r, tokenFailure(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), deviceID)))
		})
	}
}

// bearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNoBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func tokenFailure(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccessTokenExpired):
		return auth.ErrAccessTokenExpired.Error()
	case errors.Is(err, auth.ErrInvalidAccessToken):
		return auth.ErrInvalidAccessToken.Error()
	default:
		return "authentication failed"
	}
}

// unauthorized writes the problem directly; the response package imports this one.
func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	models.NewUnauthorized(GetRequestID(r.Context()), detail).
		WithInstance(r.URL.Path).
		Write(w)
}

// GetDeviceID returns the authenticated device id, or "" outside Auth.
func GetDeviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceIDKey{}).(string)
	return id
}

// WithDeviceID returns a context carrying deviceID, as Auth would set it.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}
