package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/xraph/detention"
	"github.com/xraph/detention/api"
	"github.com/xraph/detention/observability"
	"github.com/xraph/detention/store/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *api.ErrorBody  `json:"error"`
}

type studentView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TotalMinutes int64  `json:"total_minutes"`
	Standing     struct {
		Owed     int64  `json:"owed"`
		Progress int64  `json:"progress"`
		Level    string `json:"level"`
	} `json:"standing"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	tr := detention.New(memory.New(),
		detention.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		detention.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
	)
	if err := tr.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Stop() })

	srv := httptest.NewServer(api.NewRouter(tr, zerolog.Nop(), api.RouterOptions{
		CORS:     api.CORSConfig{AllowedOrigins: []string{"*"}},
		Gatherer: reg,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, wantStatus int) envelope {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, wantStatus, b)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestLedgerFlow(t *testing.T) {
	srv := newServer(t)

	env := do(t, srv, http.MethodPost, "/api/v1/classes", map[string]string{"name": "Period 4"}, http.StatusCreated)
	class := decode[struct {
		ID string `json:"id"`
	}](t, env.Data)

	env = do(t, srv, http.MethodPut, "/api/v1/classes/"+class.ID+"/students",
		map[string]string{"text": "Ana, Ben\nCara"}, http.StatusOK)
	if students := decode[[]studentView](t, env.Data); len(students) != 3 {
		t.Fatalf("imported %d students", len(students))
	}

	env = do(t, srv, http.MethodGet, "/api/v1/classes/"+class.ID+"/students?sort=asc", nil, http.StatusOK)
	roster := decode[[]studentView](t, env.Data)
	ana := roster[0]
	if ana.Name != "Ana" {
		t.Fatalf("expected name order for equal totals, got %q first", ana.Name)
	}

	base := "/api/v1/students/" + ana.ID
	do(t, srv, http.MethodPost, base+"/entries", map[string]any{"delta_minutes": 30}, http.StatusCreated)
	env = do(t, srv, http.MethodPost, base+"/entries", map[string]any{"delta_minutes": 20, "note": "phone"}, http.StatusCreated)
	result := decode[struct {
		Student studentView `json:"student"`
	}](t, env.Data)
	if result.Student.TotalMinutes != 50 || result.Student.Standing.Owed != 1 || result.Student.Standing.Level != "owed" {
		t.Fatalf("unexpected standing after adds: %+v", result.Student)
	}

	env = do(t, srv, http.MethodPost, base+"/serve", nil, http.StatusCreated)
	served := decode[struct {
		Entry struct {
			DeltaMinutes int64 `json:"delta_minutes"`
			Served45     bool  `json:"served45"`
		} `json:"entry"`
		Student studentView `json:"student"`
	}](t, env.Data)
	if served.Entry.DeltaMinutes != -45 || !served.Entry.Served45 || served.Student.TotalMinutes != 5 {
		t.Fatalf("unexpected serve result: %+v", served)
	}

	env = do(t, srv, http.MethodGet, base+"/entries/latest", nil, http.StatusOK)
	preview := decode[struct {
		Entry struct {
			DeltaMinutes int64 `json:"delta_minutes"`
			Served45     bool  `json:"served45"`
		} `json:"entry"`
	}](t, env.Data)
	if preview.Entry.DeltaMinutes != -45 || !preview.Entry.Served45 {
		t.Fatalf("undo preview = %+v, want the served entry", preview.Entry)
	}

	env = do(t, srv, http.MethodPost, base+"/undo", nil, http.StatusOK)
	undone := decode[struct {
		Student studentView `json:"student"`
	}](t, env.Data)
	if undone.Student.TotalMinutes != 50 {
		t.Fatalf("total after undo = %d", undone.Student.TotalMinutes)
	}

	env = do(t, srv, http.MethodGet, base+"/entries?limit=1", nil, http.StatusOK)
	entries := decode[[]struct {
		Note string `json:"note"`
	}](t, env.Data)
	if len(entries) != 1 || entries[0].Note != "phone" {
		t.Fatalf("unexpected latest entry: %+v", entries)
	}

	env = do(t, srv, http.MethodPost, base+"/reconcile", nil, http.StatusOK)
	if rec := decode[api.ReconcileResult](t, env.Data); rec.DriftMinutes != 0 {
		t.Errorf("drift = %d", rec.DriftMinutes)
	}

	env = do(t, srv, http.MethodDelete, "/api/v1/classes/"+class.ID+"/students", nil, http.StatusOK)
	if removed := decode[map[string]int64](t, env.Data); removed["removed"] != 3 {
		t.Errorf("removed = %v", removed)
	}
	do(t, srv, http.MethodGet, base, nil, http.StatusNotFound)
}

func TestErrorMapping(t *testing.T) {
	srv := newServer(t)

	env := do(t, srv, http.MethodPost, "/api/v1/classes", map[string]string{"name": "Art"}, http.StatusCreated)
	class := decode[struct {
		ID string `json:"id"`
	}](t, env.Data)
	env = do(t, srv, http.MethodPost, "/api/v1/classes/"+class.ID+"/students", map[string]string{"name": "Ana"}, http.StatusCreated)
	ana := decode[studentView](t, env.Data)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"blank class name", http.MethodPost, "/api/v1/classes", map[string]string{"name": " "}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/classes", "not an object", http.StatusBadRequest},
		{"bad class id", http.MethodGet, "/api/v1/classes/nope", nil, http.StatusBadRequest},
		{"student id as class id", http.MethodGet, "/api/v1/classes/" + ana.ID, nil, http.StatusBadRequest},
		{"unknown class", http.MethodGet, "/api/v1/classes/cls_01h2xcejqtf2nbrexx3vqjhp41", nil, http.StatusNotFound},
		{"zero delta", http.MethodPost, "/api/v1/students/" + ana.ID + "/entries", map[string]any{"delta_minutes": 0}, http.StatusBadRequest},
		{"unknown student", http.MethodPost, "/api/v1/students/stu_01h2xcejqtf2nbrexx3vqjhp41/serve", nil, http.StatusNotFound},
		{"clear unknown class", http.MethodDelete, "/api/v1/classes/cls_01h2xcejqtf2nbrexx3vqjhp41/students", nil, http.StatusNotFound},
		{"latest with no entries", http.MethodGet, "/api/v1/students/" + ana.ID + "/entries/latest", nil, http.StatusNotFound},
		{"empty roster", http.MethodPut, "/api/v1/classes/" + class.ID + "/students", map[string]string{"text": " , "}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := do(t, srv, tt.method, tt.path, tt.body, tt.status)
			if env.Success || env.Error == nil || env.Error.Message == "" {
				t.Errorf("expected error envelope, got %+v", env)
			}
		})
	}
}

func TestUndoWithNothingToUndo(t *testing.T) {
	srv := newServer(t)

	env := do(t, srv, http.MethodPost, "/api/v1/classes", map[string]string{"name": "Art"}, http.StatusCreated)
	class := decode[struct {
		ID string `json:"id"`
	}](t, env.Data)
	env = do(t, srv, http.MethodPost, "/api/v1/classes/"+class.ID+"/students", map[string]string{"name": "Ana"}, http.StatusCreated)
	ana := decode[studentView](t, env.Data)

	env = do(t, srv, http.MethodPost, "/api/v1/students/"+ana.ID+"/undo", nil, http.StatusOK)
	res := decode[struct {
		Entry *json.RawMessage `json:"entry"`
	}](t, env.Data)
	if res.Entry != nil {
		t.Errorf("expected null entry, got %s", *res.Entry)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	do(t, srv, http.MethodPost, "/api/v1/classes", map[string]string{"name": "Art"}, http.StatusCreated)

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("detention_class_created 1")) {
		t.Errorf("metrics missing class counter:\n%s", body)
	}
}
