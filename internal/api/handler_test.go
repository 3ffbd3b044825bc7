package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"truck-inspection-backend/config"
	"truck-inspection-backend/internal/catalog"
	"truck-inspection-backend/internal/checklist"
	"truck-inspection-backend/internal/dashboard"
	"truck-inspection-backend/internal/export"
	"truck-inspection-backend/internal/fragments"
	"truck-inspection-backend/internal/model"
	"truck-inspection-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	registryJSON = `{"trucks": [{"id": 341, "name": "Truck 341"}, {"id": 342, "name": "Truck 342"}]}`
	truck341JSON = `{"sections": [
		{"title": "Engine", "items": ["Oil", "Belts"]},
		{"title": "Cab", "items": ["Horn"]}
	]}`
	navHTML = `<nav><a href="hub.html">Hub</a><a href="dashboard.html">Dashboard</a></nav>`
)

type fakeSubs struct {
	mu     sync.Mutex
	trucks map[string][]int64
}

func (f *fakeSubs) PutSubscription(_ context.Context, sub model.PushSubscription, trucks []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trucks[sub.Endpoint] = trucks
	return nil
}

func (f *fakeSubs) DeleteSubscription(_ context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.trucks, endpoint)
	return nil
}

func (f *fakeSubs) SubscribedTrucks(_ context.Context, endpoint string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trucks, ok := f.trucks[endpoint]
	if !ok {
		return nil, store.ErrNotFound
	}
	return trucks, nil
}

func (f *fakeSubs) SubscriptionsForTruck(context.Context, int64) ([]model.PushSubscription, error) {
	return nil, nil
}

type testEnv struct {
	router    *gin.Engine
	dir       string
	storePath string
	subs      *fakeSubs
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.RegistryFile), []byte(registryJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.DefinitionFile(341)), []byte(truck341JSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fragments.NavFile), []byte(navHTML), 0o644))

	log := zap.NewNop().Sugar()
	storePath := filepath.Join(dir, "inspections.json")
	repo := store.NewFileStore(storePath, log)
	cat := catalog.New(catalog.NewDirSource(dir), time.Minute, log)
	clock := func() time.Time { return fixedNow }
	subs := &fakeSubs{trucks: map[string][]int64{}}

	h := NewHandler(Deps{
		Catalog:       cat,
		Sessions:      checklist.NewManager(cat, repo, checklist.Options{DefaultTruck: 341, Clock: clock}, log),
		Dashboard:     dashboard.NewService(repo, log),
		Exporter:      export.New(time.UTC),
		Fragments:     fragments.New(dir),
		Subscriptions: subs,
		WebPush:       &webpush.Options{VAPIDPublicKey: "public-key"},
		Logger:        log,
		Clock:         clock,
	})
	router := NewRouter(h, config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTL: time.Minute})
	return &testEnv{router: router, dir: dir, storePath: storePath, subs: subs}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createSession(t *testing.T) checklist.Snapshot {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var snap checklist.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestListTrucks_ETag(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/trucks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":341,"name":"Truck 341"},{"id":342,"name":"Truck 342"}]`, w.Body.String())
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	req, _ := http.NewRequest(http.MethodGet, "/api/trucks", nil)
	req.Header.Set("If-None-Match", tag)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestGetChecklist(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/trucks/341/checklist", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var def model.Definition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &def))
	assert.Equal(t, 3, def.ItemCount())

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/trucks/abc/checklist", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/trucks/999/checklist", nil).Code)

	w = env.do(t, http.MethodGet, "/api/trucks/342/checklist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Make sure the truck JSON file exists.")
}

func TestSession_SelectsDefaultTruck(t *testing.T) {
	env := newTestEnv(t)

	snap := env.createSession(t)

	require.NotNil(t, snap.TruckNumber)
	assert.Equal(t, int64(341), *snap.TruckNumber)
	require.Len(t, snap.Tabs, 2)
	assert.True(t, snap.Tabs[0].Active)
	assert.False(t, snap.Tabs[1].Active)
	require.NotNil(t, snap.Checklist)
	assert.Len(t, snap.Checklist.Sections, 2)

	w := env.do(t, http.MethodGet, "/api/sessions/"+snap.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/sessions/nope", nil).Code)
}

func TestSession_SelectTruckLoadError(t *testing.T) {
	env := newTestEnv(t)
	snap := env.createSession(t)

	w := env.do(t, http.MethodPut, "/api/sessions/"+snap.ID+"/truck", gin.H{"truck_id": 342})
	require.Equal(t, http.StatusOK, w.Code)
	var got checklist.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(342), *got.TruckNumber)
	assert.Nil(t, got.Checklist)
	assert.True(t, strings.HasPrefix(got.LoadError, "Error loading checklist: "))

	w = env.do(t, http.MethodPut, "/api/sessions/"+snap.ID+"/truck", gin.H{"truck_id": 999})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSession_ToggleAndNotes(t *testing.T) {
	env := newTestEnv(t)
	snap := env.createSession(t)
	base := "/api/sessions/" + snap.ID

	w := env.do(t, http.MethodPost, base+"/items/toggle", gin.H{"section": "Engine", "item": "Oil"})
	require.Equal(t, http.StatusOK, w.Code)
	var item checklist.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.True(t, item.Checked)
	require.NotNil(t, item.CheckTimestamp)
	assert.True(t, fixedNow.Equal(*item.CheckTimestamp))

	w = env.do(t, http.MethodPut, base+"/items/notes", gin.H{"section": "Cab", "item": "Horn", "notes": "weak"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, "weak", item.Notes)

	w = env.do(t, http.MethodPost, base+"/items/toggle", gin.H{"section": "Engine", "item": "Fuel"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, base+"/items/toggle", gin.H{"section": "Engine"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	snap := env.createSession(t)

	w := env.do(t, http.MethodPost, "/api/sessions/"+snap.ID+"/submit", gin.H{"inspector": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error":"inspector name is required","field":"inspector-name"}`, w.Body.String())

	_, err := os.Stat(env.storePath)
	assert.True(t, os.IsNotExist(err))
}

func TestSession_SubmitAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	snap := env.createSession(t)
	base := "/api/sessions/" + snap.ID

	env.do(t, http.MethodPost, base+"/items/toggle", gin.H{"section": "Engine", "item": "Oil"})
	env.do(t, http.MethodPost, base+"/items/toggle", gin.H{"section": "Engine", "item": "Belts"})

	w := env.do(t, http.MethodPost, base+"/submit", gin.H{"inspector": "Jane"})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Record  model.InspectionRecord `json:"record"`
		Session checklist.Snapshot     `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(341), resp.Record.TruckNumber)
	assert.Equal(t, "Jane", resp.Record.Inspector)
	assert.Equal(t, "Defect", string(resp.Record.Results["Cab"]["Horn"].Status))
	assert.Equal(t, "", resp.Session.Inspector)
	for _, s := range resp.Session.Checklist.Sections {
		for _, it := range s.Items {
			assert.False(t, it.Checked)
		}
	}

	w = env.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary dashboard.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, 2, summary.TotalOK)
	assert.Equal(t, 1, summary.TotalDefect)

	w = env.do(t, http.MethodGet, "/api/dashboard/chart.svg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Truck 341")
}

func TestSession_SubmitSaveFailurePreservesForm(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.storePath, []byte("not json"), 0o644))
	snap := env.createSession(t)
	base := "/api/sessions/" + snap.ID

	env.do(t, http.MethodPost, base+"/select-all", nil)
	w := env.do(t, http.MethodPost, base+"/submit", gin.H{"inspector": "Jane"})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp struct {
		Error   string             `json:"error"`
		Session checklist.Snapshot `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to save inspection.", resp.Error)
	assert.Equal(t, "Jane", resp.Session.Inspector)
	assert.True(t, resp.Session.Checklist.Sections[0].Items[0].Checked)

	raw, err := os.ReadFile(env.storePath)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(raw))
}

func TestDashboard_Empty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"empty":true,"message":"No inspections saved yet.","rows":[],"totalOk":0,"totalDefects":0}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/dashboard/chart.svg", nil).Code)
}

func TestExportPDF(t *testing.T) {
	env := newTestEnv(t)
	snap := env.createSession(t)

	w := env.do(t, http.MethodGet, "/api/sessions/"+snap.ID+"/export.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Truck_341_Inspection.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestSession_SetInspectorShowsInExport(t *testing.T) {
	env := newTestEnv(t)
	snap := env.createSession(t)
	base := "/api/sessions/" + snap.ID

	w := env.do(t, http.MethodPut, base+"/inspector", gin.H{"inspector": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var got checklist.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Alice", got.Inspector)

	w = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Alice", got.Inspector)

	var texts []string
	for _, line := range export.New(time.UTC).Lines(got, fixedNow) {
		texts = append(texts, line.Text)
	}
	assert.Contains(t, texts, "Inspector: Alice")
	assert.NotContains(t, texts, "Inspector: Unknown")

	w = env.do(t, http.MethodGet, base+"/export.pdf", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/api/sessions/nope/inspector", gin.H{"inspector": "Alice"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFragments(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/fragments/nav?page=dashboard.html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<a href="dashboard.html" class="bg-gray-950/50 text-white font-bold">`)

	w = env.do(t, http.MethodGet, "/fragments/footer", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutSubscription(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint": "https://push.example/abc", "p256dh": "k", "auth": "a", "subscribed_trucks": []int64{341},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_trucks":[341]}`, w.Body.String())

	w = env.do(t, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example/abc"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionsUnavailable(t *testing.T) {
	h := NewHandler(Deps{})
	r := gin.New()
	r.GET("/api/subscriptions", h.GetSubscription)
	r.GET("/api/vapid_public_key", h.GetVAPIDPublicKey)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/subscriptions?endpoint=x", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/vapid_public_key", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())
}
