package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ticket-storefront/internal/session"
)

func newTestSessionMiddleware(t *testing.T) (*SessionMiddleware, *session.MemoryStore) {
	t.Helper()
	cookies, err := NewCookieStore("test-session-secret", time.Hour, false)
	require.NoError(t, err)

	states := session.NewMemoryStore(time.Hour)
	t.Cleanup(states.Close)

	return NewSessionMiddleware(cookies, states, zap.NewNop()), states
}

func TestSessionMiddleware_StartsAndResumesSession(t *testing.T) {
	m, states := newTestSessionMiddleware(t)

	var seen session.State
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, ok := GetSessionState(r.Context())
		require.True(t, ok)
		seen = state
		if _, ok := state.Get(session.KeyCart); !ok {
			state.Set(session.KeyCart, `{"items":{}}`)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	_, err := uuid.Parse(seen.ID())
	require.NoError(t, err)
	firstID := seen.ID()

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(cookies[0])
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, firstID, seen.ID())
	value, ok := seen.Get(session.KeyCart)
	assert.True(t, ok)
	assert.Equal(t, `{"items":{}}`, value)
	assert.Equal(t, 1, states.Len())
}

func TestSessionMiddleware_TamperedCookieStartsNewSession(t *testing.T) {
	m, _ := newTestSessionMiddleware(t)

	var seen session.State
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetSessionState(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	_, err := uuid.Parse(seen.ID())
	assert.NoError(t, err)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestSessionMiddleware_CookieFromOtherSecretRejected(t *testing.T) {
	m, _ := newTestSessionMiddleware(t)
	otherCookies, err := NewCookieStore("another-secret", time.Hour, false)
	require.NoError(t, err)
	other := NewSessionMiddleware(otherCookies, session.NewMemoryStore(time.Hour), zap.NewNop())

	var ids []string
	record := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, _ := GetSessionState(r.Context())
		ids = append(ids, state.ID())
	})

	rec := httptest.NewRecorder()
	other.Handler(record).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	m.Handler(record).ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestGetSessionState_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := GetSessionState(req.Context())
	assert.False(t, ok)
}

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
