package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"ticket-storefront/internal/logging"
	"ticket-storefront/internal/session"
	"ticket-storefront/internal/utils"
)

const (
	sessionCookieName = "session"
	sessionIDValue    = "sid"
)

const sessionStateKey contextKey = "session_state"

// NewCookieStore creates the signed and encrypted cookie store holding the
// session id. Both keys are derived from secret.
func NewCookieStore(secret string, maxAge time.Duration, secure bool) (*sessions.CookieStore, error) {
	hashKey, err := utils.DeriveKey(secret, "session-cookie-hash", 64)
	if err != nil {
		return nil, fmt.Errorf("failed to derive session hash key: %w", err)
	}
	blockKey, err := utils.DeriveKey(secret, "session-cookie-block", 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive session block key: %w", err)
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// SessionMiddleware attaches the server-side session state to each request
type SessionMiddleware struct {
	cookies sessions.Store
	states  session.Store
	logger  *zap.Logger
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(cookies sessions.Store, states session.Store, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		cookies: cookies,
		states:  states,
		logger:  logger,
	}
}

// Handler loads or starts the session of the request. The cookie is saved on
// every request, which slides its expiry.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := m.cookies.Get(r, sessionCookieName)
		if err != nil {
			m.logger.Debug("Discarding invalid session cookie", zap.Error(err))
		}

		sid, _ := cookie.Values[sessionIDValue].(string)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
			cookie.Values[sessionIDValue] = sid
			m.logger.Debug("Starting new session", zap.String("session", logging.TokenPrefix(sid)))
		}

		if err := cookie.Save(r, w); err != nil {
			m.logger.Error("Failed to save session cookie", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "session_error", "Session error")
			return
		}

		ctx := WithSessionState(r.Context(), m.states.Load(sid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithSessionState returns a context carrying state
func WithSessionState(ctx context.Context, state session.State) context.Context {
	return context.WithValue(ctx, sessionStateKey, state)
}

// GetSessionState returns the session state attached by SessionMiddleware
func GetSessionState(ctx context.Context) (session.State, bool) {
	state, ok := ctx.Value(sessionStateKey).(session.State)
	return state, ok && state != nil
}

// SecureHeaders adds security headers to responses
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only set HSTS for HTTPS
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
