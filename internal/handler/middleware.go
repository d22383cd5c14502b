package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/oneevent/internal/model"
)

// PersonLookup resolves the subject of a bearer token.
type PersonLookup interface {
	GetPerson(ctx context.Context, id string) (model.Person, error)
}

type personKey struct{}

// PersonFrom returns the authenticated person, or an anonymous one.
func PersonFrom(ctx context.Context) model.Person {
	p, _ := ctx.Value(personKey{}).(model.Person)
	return p
}

// WithPerson returns a copy of ctx carrying p.
func WithPerson(ctx context.Context, p model.Person) context.Context {
	return context.WithValue(ctx, personKey{}, p)
}

// Identity authenticates "Authorization: Bearer <jwt>" headers signed with
// HS256 and secret. The token subject is a person ID. Requests without the
// header continue anonymously; bad tokens and unknown subjects get 401.
func Identity(secret string, people PersonLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			if secret == "" {
				writeError(w, http.StatusUnauthorized, "authentication is not configured")
				return
			}

			var claims jwt.RegisteredClaims
			token, err := jwt.ParseWithClaims(
				strings.TrimSpace(auth[len("bearer "):]),
				&claims,
				func(*jwt.Token) (any, error) { return []byte(secret), nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			)
			if err != nil || !token.Valid || claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			p, err := people.GetPerson(r.Context(), claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unknown user")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPerson(r.Context(), p)))
		})
	}
}

// Logger writes one structured line per request.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("request",
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// CORS allows browser clients from any origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
