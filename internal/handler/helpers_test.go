package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SwipeSavdev/camp-card-sub001/internal/contextkeys"
	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

var (
	scout = &domain.Principal{UserID: "user-1", Email: "scout@example.com", Role: domain.RoleScout}
	admin = &domain.Principal{UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleNationalAdmin}
)

// serve routes a single request through a chi router so URL parameters
// resolve as they do in production.
func serve(h http.HandlerFunc, method, pattern, target, body string, caller *domain.Principal) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != nil {
		req = req.WithContext(contextkeys.WithPrincipal(req.Context(), *caller))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// serveWithHeader is serve for the authenticated test caller plus one extra
// request header.
func serveWithHeader(h http.HandlerFunc, method, path, body, key, value string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, path, h)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(key, value)
	req = req.WithContext(contextkeys.WithPrincipal(req.Context(), *scout))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
