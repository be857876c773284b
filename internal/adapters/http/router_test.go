package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openmeet/pip/internal/adapters/conference"
	"github.com/openmeet/pip/internal/adapters/headless"
	"github.com/openmeet/pip/internal/app/pip"
	"github.com/openmeet/pip/internal/config"
	"github.com/openmeet/pip/internal/domain"
)

type routerFixture struct {
	handler  http.Handler
	engine   *pip.Engine
	store    *conference.Store
	platform *headless.Platform
	sink     *headless.Sink
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := &config.Config{
		Mode:         "release",
		Secret:       "test-secret",
		AutoPip:      false,
		PipFPS:       120,
		PipDebounce:  5 * time.Millisecond,
		CanvasWidth:  160,
		CanvasHeight: 90,
	}
	store := conference.NewStore()
	platform := headless.NewPlatform()
	sink := headless.NewSink()
	engine := pip.NewEngine(pip.Deps{
		Platform:   platform,
		Sink:       sink,
		Session:    headless.NewMediaSession(),
		Reader:     store,
		Dispatcher: store,
	}, headless.NewVisibility(), pip.Options{
		Width:  cfg.CanvasWidth,
		Height: cfg.CanvasHeight,
		FPS:    cfg.PipFPS,
	})
	handler := SetupRouter(context.Background(), cfg, Deps{
		Engine: engine,
		Store:  store,
		Sink:   sink,
	})
	t.Cleanup(func() { _ = engine.OnConferenceLeft(context.Background()) })
	return &routerFixture{handler: handler, engine: engine, store: store, platform: platform, sink: sink}
}

func (fx *routerFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	fx.handler.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("response not JSON: %v (body %q)", err, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	fx := newRouterFixture(t)
	w := fx.do(t, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", w.Code)
	}
}

func TestPipStateEndpoint(t *testing.T) {
	fx := newRouterFixture(t)
	w := fx.do(t, http.MethodGet, "/api/pip/state", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/pip/state = %d, want 200", w.Code)
	}
	var state struct {
		Supported bool `json:"supported"`
		Active    bool `json:"active"`
	}
	decodeJSON(t, w, &state)
	if !state.Supported {
		t.Error("supported = false")
	}
	if state.Active {
		t.Error("active = true before any toggle")
	}
}

func TestPipToggleLifecycle(t *testing.T) {
	fx := newRouterFixture(t)

	w := fx.do(t, http.MethodPost, "/api/pip/toggle", "")
	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/pip/toggle = %d (body %q), want 200", w.Code, w.Body.String())
	}
	var res struct {
		Active bool `json:"active"`
	}
	decodeJSON(t, w, &res)
	if !res.Active {
		t.Fatal("active = false after entering toggle")
	}

	w = fx.do(t, http.MethodPost, "/api/pip/toggle", "")
	if w.Code != http.StatusOK {
		t.Fatalf("second toggle = %d, want 200", w.Code)
	}
	decodeJSON(t, w, &res)
	if res.Active {
		t.Fatal("active = true after exiting toggle")
	}
}

func TestPipToggleRefusalsMapTo409(t *testing.T) {
	fx := newRouterFixture(t)

	fx.platform.SetRequireGesture(true)
	if w := fx.do(t, http.MethodPost, "/api/pip/toggle", ""); w.Code != http.StatusConflict {
		t.Errorf("toggle with gesture refusal = %d, want 409", w.Code)
	}

	fx.platform.SetRequireGesture(false)
	fx.platform.SetSupported(false)
	if w := fx.do(t, http.MethodPost, "/api/pip/toggle", ""); w.Code != http.StatusConflict {
		t.Errorf("toggle without capability = %d, want 409", w.Code)
	}
}

func TestFrameEndpoint(t *testing.T) {
	fx := newRouterFixture(t)

	if w := fx.do(t, http.MethodGet, "/api/pip/frame.png", ""); w.Code != http.StatusNotFound {
		t.Fatalf("frame before session = %d, want 404", w.Code)
	}

	if w := fx.do(t, http.MethodPost, "/api/pip/toggle", ""); w.Code != http.StatusOK {
		t.Fatalf("toggle = %d, want 200", w.Code)
	}
	deadline := time.Now().Add(2 * time.Second)
	for fx.sink.LastFrame() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fx.sink.LastFrame() == nil {
		t.Fatal("no frame rendered within deadline")
	}

	w := fx.do(t, http.MethodGet, "/api/pip/frame.png", "")
	if w.Code != http.StatusOK {
		t.Fatalf("frame during session = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("empty png body")
	}
}

func TestConferenceEndpoints(t *testing.T) {
	fx := newRouterFixture(t)

	if w := fx.do(t, http.MethodPost, "/api/conference/join", ""); w.Code != http.StatusOK {
		t.Fatalf("join = %d, want 200", w.Code)
	}
	if !fx.store.InConference() {
		t.Fatal("store not joined after join endpoint")
	}

	w := fx.do(t, http.MethodPost, "/api/conference/participants", `{"name":"Ada Lovelace"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("add participant = %d (body %q), want 200", w.Code, w.Body.String())
	}
	var p domain.Participant
	decodeJSON(t, w, &p)
	if p.ID == "" || p.Name != "Ada Lovelace" {
		t.Fatalf("participant = %+v, want generated id and given name", p)
	}

	if w := fx.do(t, http.MethodPost, "/api/conference/participants", `{"name":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("add nameless participant = %d, want 400", w.Code)
	}

	if w := fx.do(t, http.MethodPost, "/api/conference/focal/"+string(p.ID), ""); w.Code != http.StatusOK {
		t.Errorf("set focal = %d, want 200", w.Code)
	}
	if w := fx.do(t, http.MethodPost, "/api/conference/focal/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("set unknown focal = %d, want 404", w.Code)
	}

	if w := fx.do(t, http.MethodPost, "/api/conference/mute", `{"media":"audio","muted":true}`); w.Code != http.StatusOK {
		t.Errorf("mute = %d, want 200", w.Code)
	}
	if !fx.store.LocalMuted(domain.MediaAudio) {
		t.Error("audio not muted after mute endpoint")
	}

	if w := fx.do(t, http.MethodPost, "/api/conference/leave", ""); w.Code != http.StatusOK {
		t.Fatalf("leave = %d, want 200", w.Code)
	}
	if fx.store.InConference() {
		t.Error("store joined after leave endpoint")
	}
}
