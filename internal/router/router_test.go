package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/adoption-agency/internal/config"
	"github.com/deppfellow/adoption-agency/internal/errs"
	"github.com/deppfellow/adoption-agency/internal/handler"
	"github.com/deppfellow/adoption-agency/internal/model"
	"github.com/deppfellow/adoption-agency/internal/repository"
	"github.com/deppfellow/adoption-agency/internal/service"
	"github.com/deppfellow/adoption-agency/internal/testdb"
)

func newTestRouter(t *testing.T, configure ...func(*config.Config)) *echo.Echo {
	t.Helper()

	s := testdb.NewServer(t)
	for _, fn := range configure {
		fn(s.Config)
	}

	services, err := service.NewServices(s, repository.NewRepositories(s))
	require.NoError(t, err)

	return NewRouter(s, handler.NewHandlers(s, services))
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[errs.HTTPError](t, rec)
	assert.Equal(t, code, body.Code)
	assert.Equal(t, status, body.Status)
}

func TestSpeciesAPI_CreateAndRead(t *testing.T) {
	e := newTestRouter(t)

	rec := do(t, e, http.MethodPost, "/api/v1/species", `{"name":"Cat"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.Species{ID: 1, Name: "Cat", IsActive: true}, decode[model.Species](t, rec))

	rec = do(t, e, http.MethodPost, "/api/v1/species", `{"name":" cat "}`)
	assertError(t, rec, http.StatusConflict, "DUPLICATE_INFORMATION")

	rec = do(t, e, http.MethodPost, "/api/v1/species", `{"name":""}`)
	assertError(t, rec, http.StatusBadRequest, "MISSING_INFORMATION")

	rec = do(t, e, http.MethodPost, "/api/v1/species", `{"name":`)
	assertError(t, rec, http.StatusBadRequest, "BAD_REQUEST")

	rec = do(t, e, http.MethodGet, "/api/v1/species/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cat", decode[model.Species](t, rec).Name)

	rec = do(t, e, http.MethodGet, "/api/v1/species/99", "")
	assertError(t, rec, http.StatusNotFound, "NOT_FOUND")

	rec = do(t, e, http.MethodGet, "/api/v1/species/0", "")
	assertError(t, rec, http.StatusBadRequest, "MISSING_INFORMATION")

	rec = do(t, e, http.MethodGet, "/api/v1/species/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpeciesAPI_List(t *testing.T) {
	e := newTestRouter(t)

	for _, name := range []string{"Cat", "Dog", "Caterpillar"} {
		require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/api/v1/species", `{"name":"`+name+`"}`).Code)
	}
	require.Equal(t, http.StatusOK, do(t, e, http.MethodPost, "/api/v1/species/2/deactivate", "").Code)

	names := func(rec *httptest.ResponseRecorder) []string {
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var result []string
		for _, s := range decode[[]model.Species](t, rec) {
			result = append(result, s.Name)
		}
		return result
	}

	assert.Equal(t, []string{"Cat", "Dog", "Caterpillar"}, names(do(t, e, http.MethodGet, "/api/v1/species", "")))
	assert.Equal(t, []string{"Cat", "Caterpillar"}, names(do(t, e, http.MethodGet, "/api/v1/species?isActive=true", "")))
	assert.Equal(t, []string{"Dog"}, names(do(t, e, http.MethodGet, "/api/v1/species?isActive=false", "")))
	assert.Equal(t, []string{"Cat", "Caterpillar"}, names(do(t, e, http.MethodGet, "/api/v1/species?name=CAT", "")))
	assert.Equal(t, []string{"Caterpillar"}, names(do(t, e, http.MethodGet, "/api/v1/species?search.name=pill", "")))
	assert.Equal(t, []string{"Cat", "Caterpillar"}, names(do(t, e, http.MethodGet, "/api/v1/species?ids=1&ids=3", "")))
	assert.Equal(t, []string{"Dog"}, names(do(t, e, http.MethodGet, "/api/v1/species?q=2", "")))

	rec := do(t, e, http.MethodGet, "/api/v1/species?ids=42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/v1/species?search.color=brown", "")
	assertError(t, rec, http.StatusBadRequest, "INVALID_COLUMN")

	rec = do(t, e, http.MethodGet, "/api/v1/species?isActive=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errs.HTTPError](t, rec)
	assert.Equal(t, []errs.FieldError{{Field: "isActive", Error: "must be one of: true false 1 0"}}, body.Errors)
}

func TestSpeciesAPI_Update(t *testing.T) {
	e := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/api/v1/species", `{"name":"Cat"}`).Code)
	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/api/v1/species", `{"name":"Dog"}`).Code)

	rec := do(t, e, http.MethodPatch, "/api/v1/species/1", `{"name":null}`)
	assertError(t, rec, http.StatusBadRequest, "CANNOT_REMOVE_INFO")

	rec = do(t, e, http.MethodPatch, "/api/v1/species/1", `{"name":"dog"}`)
	assertError(t, rec, http.StatusConflict, "DUPLICATE_INFORMATION")

	rec = do(t, e, http.MethodPatch, "/api/v1/species/99", `{"name":"Bird"}`)
	assertError(t, rec, http.StatusNotFound, "INVALID_TARGET")

	rec = do(t, e, http.MethodPatch, "/api/v1/species/1", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cat", decode[model.Species](t, rec).Name)

	rec = do(t, e, http.MethodPatch, "/api/v1/species/1", `{"name":"Kitten","id":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Species{ID: 1, Name: "Kitten", IsActive: true}, decode[model.Species](t, rec))
}

func TestSpeciesAPI_ActivationAndDelete(t *testing.T) {
	e := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/api/v1/species", `{"name":"Cat"}`).Code)

	rec := do(t, e, http.MethodPost, "/api/v1/species/1/deactivate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[model.Species](t, rec).IsActive)

	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, "/api/v1/species", `{"name":"Cat"}`).Code)

	rec = do(t, e, http.MethodPost, "/api/v1/species/1/activate", "")
	assertError(t, rec, http.StatusConflict, "DUPLICATE_INFORMATION")

	rec = do(t, e, http.MethodDelete, "/api/v1/species/2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/v1/species/1/activate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.Species](t, rec).IsActive)

	rec = do(t, e, http.MethodDelete, "/api/v1/species/2", "")
	assertError(t, rec, http.StatusNotFound, "INVALID_TARGET")

	rec = do(t, e, http.MethodPost, "/api/v1/species/5/deactivate", "")
	assertError(t, rec, http.StatusNotFound, "INVALID_TARGET")
}

func TestSystemRoutes(t *testing.T) {
	e := newTestRouter(t)

	rec := do(t, e, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "test", health["environment"])
	assert.Contains(t, health["checks"], "database")

	rec = do(t, e, http.MethodGet, "/docs/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"/api/v1/species"`)

	rec = do(t, e, http.MethodGet, "/nowhere", "")
	assertError(t, rec, http.StatusNotFound, "NOT_FOUND")
}

func TestRequestIDHeader(t *testing.T) {
	e := newTestRouter(t)

	rec := do(t, e, http.MethodGet, "/status", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	e := newTestRouter(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = 0.001
		cfg.Server.RateLimitBurst = 1
	})

	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/api/v1/species", "").Code)
	assertError(t, do(t, e, http.MethodGet, "/api/v1/species", ""), http.StatusTooManyRequests, "TOO_MANY_REQUESTS")

	// System routes are not throttled.
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/status", "").Code)
}
