package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"loralinka/internal/config"
	"loralinka/internal/database/dbtest"
	"loralinka/internal/logger"
	"loralinka/internal/models"
	"loralinka/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const testKey = "test-key"

type api struct {
	t      *testing.T
	db     *bun.DB
	server *httptest.Server
}

func newAPI(t *testing.T, perMinute int) *api {
	t.Helper()
	db := dbtest.New(t)
	cfg := &config.Config{APIKey: testKey, AllowedOrigins: []string{"*"}}

	store := ratelimit.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	limiter := ratelimit.New(store, ratelimit.PerMinute(perMinute), ratelimit.PerHour(perMinute*10))

	srv := httptest.NewServer(NewRouter(db, cfg, logger.Nop(), limiter))
	t.Cleanup(srv.Close)
	return &api{t: t, db: db, server: srv}
}

func (a *api) do(method, path string, body any) (int, []byte, http.Header) {
	a.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, rdr)
	require.NoError(a.t, err)
	req.Header.Set("X-API-Key", testKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, data, resp.Header
}

func (a *api) decode(data []byte, v any) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(data, v), string(data))
}

func (a *api) createUnit(name string, lat, lon float64) models.EmergencyUnit {
	a.t.Helper()
	status, data, _ := a.do(http.MethodPost, "/api/v1/emergency-units", map[string]any{
		"name": name, "latitud": lat, "longitud": lon,
	})
	require.Equal(a.t, http.StatusCreated, status, string(data))
	var u models.EmergencyUnit
	a.decode(data, &u)
	return u
}

func TestHealthzNeedsNoKey(t *testing.T) {
	a := newAPI(t, 100)
	resp, err := http.Get(a.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresKey(t *testing.T) {
	a := newAPI(t, 100)
	resp, err := http.Get(a.server.URL + "/api/v1/emergencies")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEmergencyAssignmentFlow(t *testing.T) {
	a := newAPI(t, 100)
	unit := a.createUnit("Ambulance 1", 10.49, -66.87)

	status, data, _ := a.do(http.MethodPost, "/api/v1/emergencies", map[string]any{
		"latitud": 10.5, "longitud": -66.9,
	})
	require.Equal(t, http.StatusCreated, status, string(data))
	var e models.Emergency
	a.decode(data, &e)
	assert.Equal(t, models.StatusPending, e.Status)

	status, data, _ = a.do(http.MethodPut, fmt.Sprintf("/api/v1/emergencies/%d/assign-unit?unit_id=%d", e.ID, unit.ID), nil)
	require.Equal(t, http.StatusOK, status, string(data))
	var assigned map[string]any
	a.decode(data, &assigned)
	assert.EqualValues(t, 2, assigned["status"])
	assert.EqualValues(t, unit.ID, assigned["assigned_unit"])
	rel, ok := assigned["assigned_unit_rel"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ambulance 1", rel["name"])

	// a second emergency cannot take the busy unit
	_, data, _ = a.do(http.MethodPost, "/api/v1/emergencies", map[string]any{"latitud": 1, "longitud": 1})
	var other models.Emergency
	a.decode(data, &other)
	status, _, _ = a.do(http.MethodPut, fmt.Sprintf("/api/v1/emergencies/%d/assign-unit?unit_id=%d", other.ID, unit.ID), nil)
	assert.Equal(t, http.StatusConflict, status)

	status, data, _ = a.do(http.MethodPut, fmt.Sprintf("/api/v1/emergencies/%d", e.ID), map[string]any{"status": 3})
	require.Equal(t, http.StatusOK, status, string(data))

	status, data, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/emergency-units/%d/stats", unit.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var stats map[string]any
	a.decode(data, &stats)
	assert.EqualValues(t, 0, stats["active_emergencies"])
	assert.EqualValues(t, 1, stats["total_emergencies"])
	assert.Nil(t, stats["assigned_emergency_id"])

	status, _, _ = a.do(http.MethodPut, fmt.Sprintf("/api/v1/emergencies/%d/assign-unit?unit_id=%d", other.ID, unit.ID), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestEmergencyErrors(t *testing.T) {
	a := newAPI(t, 100)

	status, data, _ := a.do(http.MethodGet, "/api/v1/emergencies/99", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(data), `"detail"`)

	status, _, _ = a.do(http.MethodGet, "/api/v1/emergencies?limit=0", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _, _ = a.do(http.MethodGet, "/api/v1/emergencies?status_filter=4", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _, _ = a.do(http.MethodGet, "/api/v1/emergencies/1?expand=bogus", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _, _ = a.do(http.MethodPost, "/api/v1/emergencies", map[string]any{"latitud": 91})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _, _ = a.do(http.MethodPut, "/api/v1/emergencies/1/assign-unit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestUnitEndpoints(t *testing.T) {
	a := newAPI(t, 100)
	alpha := a.createUnit("Alpha", 0, 0)
	a.createUnit("Bravo", 0, 0.05)
	a.createUnit("Charlie", 0, 2)

	status, data, _ := a.do(http.MethodPost, "/api/v1/emergency-units", map[string]any{
		"name": "Alpha", "latitud": 1, "longitud": 1,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(data), "already exists")

	status, _, _ = a.do(http.MethodPost, "/api/v1/emergency-units", map[string]any{"name": "Delta"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, data, _ = a.do(http.MethodGet, "/api/v1/emergency-units/search/nearby?latitude=0&longitude=0", nil)
	require.Equal(t, http.StatusOK, status)
	var near []models.EmergencyUnit
	a.decode(data, &near)
	require.Len(t, near, 2)
	assert.Equal(t, "Alpha", near[0].Name)
	assert.Equal(t, "Bravo", near[1].Name)

	status, _, _ = a.do(http.MethodGet, "/api/v1/emergency-units/search/nearby?latitude=0&longitude=0&radius_km=500", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, data, _ = a.do(http.MethodGet, "/api/v1/emergency-units?skip=1&limit=1", nil)
	require.Equal(t, http.StatusOK, status)
	var page []models.EmergencyUnit
	a.decode(data, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "Bravo", page[0].Name)

	status, data, _ = a.do(http.MethodPut, fmt.Sprintf("/api/v1/emergency-units/%d", alpha.ID), map[string]any{"latitud": 3.5})
	require.Equal(t, http.StatusOK, status, string(data))
	var updated models.EmergencyUnit
	a.decode(data, &updated)
	assert.Equal(t, 3.5, updated.Latitude)
	assert.Equal(t, "Alpha", updated.Name)

	status, _, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/emergency-units/%d", alpha.ID), nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/emergency-units/%d", alpha.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUserEndpoints(t *testing.T) {
	a := newAPI(t, 100)

	status, data, _ := a.do(http.MethodPost, "/api/v1/users", map[string]any{
		"name":     "Maria",
		"phone":    "+58412000001",
		"birthday": "1990-03-14",
		"password": "pw",
		"emergency_contacts": []map[string]any{
			{"contact_phone": "+58412000002", "contact_name": "Ana"},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(data))
	var created map[string]any
	a.decode(data, &created)
	assert.Equal(t, "1990-03-14", created["birthday"])
	assert.NotContains(t, created, "password")
	contacts, ok := created["emergency_contacts"].([]any)
	require.True(t, ok)
	assert.Len(t, contacts, 1)
	assert.Equal(t, []any{}, created["conditions"])

	status, _, _ = a.do(http.MethodPost, "/api/v1/users/login", map[string]any{"phone": "+58412000001", "password": "pw"})
	assert.Equal(t, http.StatusOK, status)

	status, wrong, _ := a.do(http.MethodPost, "/api/v1/users/login", map[string]any{"phone": "+58412000001", "password": "no"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, unknown, _ := a.do(http.MethodPost, "/api/v1/users/login", map[string]any{"phone": "+1", "password": "no"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, string(wrong), string(unknown))

	id := int64(created["user_id"].(float64))
	status, _, _ = a.do(http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCatalogEndpoints(t *testing.T) {
	a := newAPI(t, 100)
	desc := "Fire"
	_, err := a.db.NewInsert().Model(&models.AccidentType{Description: &desc}).Exec(context.Background())
	require.NoError(t, err)

	status, data, _ := a.do(http.MethodGet, "/api/v1/catalogs/accident-types", nil)
	require.Equal(t, http.StatusOK, status)
	var types []models.AccidentType
	a.decode(data, &types)
	require.Len(t, types, 1)

	status, _, _ = a.do(http.MethodGet, fmt.Sprintf("/api/v1/catalogs/accident-types/%d", types[0].ID), nil)
	assert.Equal(t, http.StatusOK, status)
	status, _, _ = a.do(http.MethodGet, "/api/v1/catalogs/kin-catalog/5", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, data, _ = a.do(http.MethodGet, "/api/v1/catalogs/medical-conditions", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]\n", string(data))
}

func TestRateLimitOnAPI(t *testing.T) {
	a := newAPI(t, 2)

	for i := 0; i < 2; i++ {
		status, _, _ := a.do(http.MethodGet, "/api/v1/emergency-units", nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, data, header := a.do(http.MethodGet, "/api/v1/emergency-units", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Rate limit exceeded: 2 per 1 minute", string(data))
	assert.NotEmpty(t, header.Get("Retry-After"))
}

func TestCreateEmergencyRequiresCoordinates(t *testing.T) {
	a := newAPI(t, 100)

	for _, body := range []map[string]any{
		{},
		{"latitud": 10.5},
		{"longitud": -66.9},
	} {
		status, data, _ := a.do(http.MethodPost, "/api/v1/emergencies", body)
		assert.Equal(t, http.StatusUnprocessableEntity, status, "%v", body)
		assert.Contains(t, string(data), `"detail"`)
	}

	count, err := a.db.NewSelect().Model((*models.Emergency)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUserPasswordTooLong(t *testing.T) {
	a := newAPI(t, 100)
	long := string(bytes.Repeat([]byte("x"), 73))

	status, data, _ := a.do(http.MethodPost, "/api/v1/users", map[string]any{
		"name": "Maria", "phone": "+58412000001", "password": long,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(data))
	assert.Contains(t, string(data), "password")

	status, data, _ = a.do(http.MethodPost, "/api/v1/users", map[string]any{
		"name": "Maria", "phone": "+58412000001", "password": long[:72],
	})
	require.Equal(t, http.StatusCreated, status, string(data))
	var created map[string]any
	a.decode(data, &created)

	id := int64(created["user_id"].(float64))
	status, data, _ = a.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id), map[string]any{"password": long})
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(data))

	status, _, _ = a.do(http.MethodPost, "/api/v1/users/login", map[string]any{"phone": "+58412000001", "password": long[:72]})
	assert.Equal(t, http.StatusOK, status)
}

func TestNearbyRejectsNaN(t *testing.T) {
	a := newAPI(t, 100)
	a.createUnit("Alpha", 0, 0)

	for _, query := range []string{
		"latitude=NaN&longitude=0",
		"latitude=0&longitude=nan",
		"latitude=0&longitude=0&radius_km=NaN",
	} {
		status, data, _ := a.do(http.MethodGet, "/api/v1/emergency-units/search/nearby?"+query, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, status, query)
		assert.Contains(t, string(data), "must be a number", query)
	}
}
