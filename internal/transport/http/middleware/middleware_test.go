package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/xchat/internal/telemetry"
	"github.com/vedran77/xchat/pkg/domain"
)

func authed(secret string) (http.Handler, *domain.Name) {
	var seen domain.Name
	h := Auth(secret, func(w http.ResponseWriter, _ *http.Request, err error) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Caller(r.Context())
	}))
	return h, &seen
}

func TestAuth_RawName(t *testing.T) {
	req := require.New(t)
	h, seen := authed("")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("alice", seen.String())
}

func TestAuth_Rejects(t *testing.T) {
	h, _ := authed("")
	for _, header := range []string{"", "two words", "a/b"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestAuth_BearerToken(t *testing.T) {
	req := require.New(t)
	h, seen := authed("s3cret")

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "Bob",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("s3cret"))
	req.NoError(err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	req.Equal(http.StatusOK, rec.Code)
	req.Equal("bob", seen.String())

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bob"}).SignedString([]byte("other"))
	req.NoError(err)
	r.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	req.Equal(http.StatusUnauthorized, rec.Code)
}

func TestRecoverAndLogger(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	reporter, err := telemetry.NewReporter("", "test")
	req.NoError(err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := Chain(mux, Logger(logger), Recover(logger, reporter), Metrics(telemetry.NewMetrics()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	req.Equal(http.StatusInternalServerError, rec.Code)
	req.Contains(rec.Body.String(), "INTERNAL")
	req.Contains(buf.String(), `"status":500`)
}
