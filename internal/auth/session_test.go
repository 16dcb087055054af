package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionSecret = "test-session-secret-32-characters!"

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestSessionManager(clock *testClock, secure bool) *auth.SessionManager {
	sm := auth.NewSessionManager(auth.SessionConfig{
		Secret:   testSessionSecret,
		Duration: 7 * 24 * time.Hour,
		Cookie:   auth.CookieConfig{Secure: secure, SameSite: "lax"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sm.SetNowFunc(clock.Now)
	return sm
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("response did not set %s cookie", auth.SessionCookieName)
	return nil
}

func requestWithCookie(c *http.Cookie) *http.Request {
	req := httptest.NewRequest("GET", "/api/admin/session", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestSessionManager_CreateSession_SetsCookieAttributes(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	sm := newTestSessionManager(clock, true)

	w := httptest.NewRecorder()
	session, err := sm.CreateSession(w, "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", session.Username)
	assert.True(t, session.Authenticated)
	assert.Equal(t, clock.now.Add(7*24*time.Hour), session.ExpiresAt)
	assert.NotEmpty(t, session.ID)

	c := sessionCookie(t, w)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
}

func TestSessionManager_CreateSession_InsecureOutsideProduction(t *testing.T) {
	clock := &testClock{now: time.Now()}
	sm := newTestSessionManager(clock, false)

	w := httptest.NewRecorder()
	_, err := sm.CreateSession(w, "alice")
	require.NoError(t, err)

	assert.False(t, sessionCookie(t, w).Secure)
}

func TestSessionManager_CookiePayload(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	sm := newTestSessionManager(clock, false)

	w := httptest.NewRecorder()
	_, err := sm.CreateSession(w, "alice")
	require.NoError(t, err)

	parts := strings.Split(sessionCookie(t, w).Value, ".")
	require.Len(t, parts, 3, "cookie should hold a signed token")

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &body))
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, float64(clock.now.Add(7*24*time.Hour).UnixMilli()), body["expiresAt"])
}

func TestSessionManager_GetSession_BeforeAndAfterExpiry(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	sm := newTestSessionManager(clock, false)

	w := httptest.NewRecorder()
	_, err := sm.CreateSession(w, "alice")
	require.NoError(t, err)
	c := sessionCookie(t, w)

	// Valid right up to the expiry instant
	clock.now = clock.now.Add(7*24*time.Hour - time.Second)
	session := sm.GetSession(httptest.NewRecorder(), requestWithCookie(c))
	require.NotNil(t, session)
	assert.Equal(t, "alice", session.Username)
	assert.True(t, session.Authenticated)

	// Expired: none, and the cookie is cleared as a side effect
	clock.now = clock.now.Add(2 * time.Second)
	w = httptest.NewRecorder()
	assert.Nil(t, sm.GetSession(w, requestWithCookie(c)))
	assert.Less(t, sessionCookie(t, w).MaxAge, 0)
}

func TestSessionManager_GetSession_FractionalSecondIssueTime(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 900*int(time.Millisecond), time.UTC)}
	sm := newTestSessionManager(clock, false)

	w := httptest.NewRecorder()
	created, err := sm.CreateSession(w, "alice")
	require.NoError(t, err)
	c := sessionCookie(t, w)

	// The advertised expiry must match what the token enforces
	clock.now = created.ExpiresAt.Add(-500 * time.Millisecond)
	session := sm.GetSession(httptest.NewRecorder(), requestWithCookie(c))
	require.NotNil(t, session)
	assert.Equal(t, created.ExpiresAt, session.ExpiresAt)

	clock.now = created.ExpiresAt
	assert.Nil(t, sm.GetSession(httptest.NewRecorder(), requestWithCookie(c)))
}

func TestSessionManager_NoSlidingRenewal(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &testClock{now: start}
	sm := newTestSessionManager(clock, false)

	w := httptest.NewRecorder()
	_, err := sm.CreateSession(w, "alice")
	require.NoError(t, err)
	c := sessionCookie(t, w)

	// Reading the session repeatedly never moves its expiry
	for i := 1; i <= 6; i++ {
		clock.now = start.Add(time.Duration(i) * 24 * time.Hour)
		session := sm.GetSession(httptest.NewRecorder(), requestWithCookie(c))
		require.NotNil(t, session)
		assert.Equal(t, start.Add(7*24*time.Hour), session.ExpiresAt)
	}
}

func TestSessionManager_RequireSession_Unauthorized(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	sm := newTestSessionManager(clock, false)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.SessionClaims{
		Username:      "alice",
		Authenticated: true,
		ExpiresAtMs:   clock.now.Add(-time.Minute).UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(-time.Minute)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSessionSecret))
	require.NoError(t, err)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.SessionClaims{
		Username:      "mallory",
		Authenticated: true,
		ExpiresAtMs:   clock.now.Add(time.Hour).UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	})
	forgedToken, err := forged.SignedString([]byte("some-other-secret-that-is-long-enough"))
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &models.SessionClaims{
		Username:      "mallory",
		Authenticated: true,
		ExpiresAtMs:   clock.now.Add(time.Hour).UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	})
	unsignedToken, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	notAuthenticated := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.SessionClaims{
		Username:      "alice",
		Authenticated: false,
		ExpiresAtMs:   clock.now.Add(time.Hour).UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	})
	notAuthenticatedToken, err := notAuthenticated.SignedString([]byte(testSessionSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"empty cookie", &http.Cookie{Name: auth.SessionCookieName, Value: ""}},
		{"malformed json", &http.Cookie{Name: auth.SessionCookieName, Value: `{"username":"alice","authenticated":true`}},
		{"plain json", &http.Cookie{Name: auth.SessionCookieName, Value: `{"username":"alice","authenticated":true,"expiresAt":99999999999999}`}},
		{"expired", &http.Cookie{Name: auth.SessionCookieName, Value: expiredToken}},
		{"wrong signing key", &http.Cookie{Name: auth.SessionCookieName, Value: forgedToken}},
		{"alg none", &http.Cookie{Name: auth.SessionCookieName, Value: unsignedToken}},
		{"authenticated false", &http.Cookie{Name: auth.SessionCookieName, Value: notAuthenticatedToken}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := sm.RequireSession(httptest.NewRecorder(), requestWithCookie(tt.cookie))
			assert.Nil(t, session)
			assert.True(t, errors.Is(err, models.ErrUnauthorized))
		})
	}
}

func TestSessionManager_GetSession_NilWriter(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	sm := newTestSessionManager(clock, false)

	c := &http.Cookie{Name: auth.SessionCookieName, Value: "garbage"}

	assert.NotPanics(t, func() {
		assert.Nil(t, sm.GetSession(nil, requestWithCookie(c)))
	})
}

func TestSessionManager_CookieSameSiteIsCaseInsensitive(t *testing.T) {
	tests := []struct {
		value string
		want  http.SameSite
	}{
		{"Strict", http.SameSiteStrictMode},
		{"LAX", http.SameSiteLaxMode},
		{"None", http.SameSiteNoneMode},
		{" strict ", http.SameSiteStrictMode},
		{"bogus", http.SameSiteLaxMode},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			sm := auth.NewSessionManager(auth.SessionConfig{
				Secret:   testSessionSecret,
				Duration: time.Hour,
				Cookie:   auth.CookieConfig{Secure: true, SameSite: tt.value},
			}, slog.New(slog.NewTextHandler(io.Discard, nil)))

			w := httptest.NewRecorder()
			_, err := sm.CreateSession(w, "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.want, sessionCookie(t, w).SameSite)
		})
	}
}

func TestSessionManager_DeleteSession(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	sm := newTestSessionManager(clock, false)

	w := httptest.NewRecorder()
	sm.DeleteSession(w)

	c := sessionCookie(t, w)
	assert.Equal(t, "", c.Value)
	assert.Less(t, c.MaxAge, 0)
	assert.True(t, c.HttpOnly)
}
