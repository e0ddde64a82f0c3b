package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nordbeam/nb-inertia-sub000/adapters/clock"
	"github.com/nordbeam/nb-inertia-sub000/adapters/idgen"
	"github.com/nordbeam/nb-inertia-sub000/adapters/memory"
	"github.com/nordbeam/nb-inertia-sub000/core/props"
	"github.com/nordbeam/nb-inertia-sub000/core/registry"
	"github.com/nordbeam/nb-inertia-sub000/core/resolve"
)

type harness struct {
	handler *Handler
	reg     *registry.Registry
	clock   *clock.Fake
	cache   *memory.OnceCache
}

func newHarness(t *testing.T, register func(*registry.Registry)) *harness {
	t.Helper()

	reg := registry.New()
	register(reg)
	reg.Freeze()

	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cache := memory.NewOnceCache()

	h, err := New(Options{
		Registry:       reg,
		Resolver:       resolve.New(reg, clk),
		Clock:          clk,
		IDGen:          idgen.NewSequential("req_"),
		OnceCache:      cache,
		Logger:         zerolog.Nop(),
		Version:        func() string { return "v1" },
		CamelCaseProps: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &harness{handler: h, reg: reg, clock: clk, cache: cache}
}

func mustRegister(t *testing.T, reg *registry.Registry, id string, schema []props.PropSpec) {
	t.Helper()
	if _, err := reg.RegisterPage(id, schema, registry.PageOptions{}); err != nil {
		t.Fatalf("RegisterPage(%s) error = %v", id, err)
	}
}

func decodePage(t *testing.T, w *httptest.ResponseRecorder) Page {
	t.Helper()
	var page Page
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v\nbody: %s", err, w.Body.String())
	}
	return page
}

func TestRender_InertiaJSON(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "users_index", []props.PropSpec{
			{Name: "users"},
			{Name: "total_count"},
		})
	})

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set(HeaderInertia, "true")
	w := httptest.NewRecorder()

	h.handler.Render(w, r, "users_index", resolve.Checked(
		props.Prop{Name: "users", Value: []string{"ada"}},
		props.Prop{Name: "total_count", Value: 1},
	), RenderOptions{})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(HeaderInertia); got != "true" {
		t.Errorf("%s = %q", HeaderInertia, got)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	page := decodePage(t, w)
	if page.Component != "Users/Index" {
		t.Errorf("component = %q", page.Component)
	}
	if page.Version != "v1" {
		t.Errorf("version = %q", page.Version)
	}
	if page.URL != "/users" {
		t.Errorf("url = %q", page.URL)
	}
	// Prop names are camelCased in the payload.
	if _, ok := page.Props["totalCount"]; !ok {
		t.Errorf("props = %v, want totalCount key", page.Props)
	}
	if _, ok := page.Props["total_count"]; ok {
		t.Error("snake_case name leaked into payload")
	}
}

func TestRender_HTMLShell(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "dashboard", []props.PropSpec{{Name: "greeting"}})
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	h.handler.Render(w, r, "dashboard", resolve.Checked(
		props.Prop{Name: "greeting", Value: "hello"},
	), RenderOptions{})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("Content-Type = %q", got)
	}
	body := w.Body.String()
	if !strings.Contains(body, "data-page=") {
		t.Error("shell missing data-page attribute")
	}
	if !strings.Contains(body, "Dashboard") {
		t.Error("shell missing embedded component name")
	}
}

func TestRender_StaleVersionConflict(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "dashboard", nil)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderInertia, "true")
	r.Header.Set(HeaderVersion, "v0")
	w := httptest.NewRecorder()

	h.handler.Render(w, r, "dashboard", resolve.Checked(), RenderOptions{})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if got := w.Header().Get(HeaderLocation); got != "/" {
		t.Errorf("%s = %q", HeaderLocation, got)
	}
}

func TestRender_DeferredAdvertisedOnFullLoad(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "dashboard", []props.PropSpec{
			{Name: "greeting"},
			{Name: "recent_activity", DeferGroup: "activity"},
		})
	})

	invoked := false
	render := func(r *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.handler.Render(w, r, "dashboard", resolve.Checked(
			props.Prop{Name: "greeting", Value: "hello"},
			props.Prop{Name: "recent_activity", Value: func() (any, error) {
				invoked = true
				return []string{"login"}, nil
			}},
		), RenderOptions{})
		return w
	}

	// Full load: the deferred prop is advertised, not evaluated.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderInertia, "true")
	page := decodePage(t, render(r))

	if _, ok := page.Props["recentActivity"]; ok {
		t.Error("deferred prop included in full load")
	}
	groups := page.DeferredProps["activity"]
	if len(groups) != 1 || groups[0] != "recentActivity" {
		t.Errorf("deferredProps = %v", page.DeferredProps)
	}
	if invoked {
		t.Error("deferred thunk evaluated on full load")
	}

	// Partial reload echoing the advertised (cased) name: evaluated and
	// included.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderInertia, "true")
	r.Header.Set(HeaderPartialComponent, "Dashboard")
	r.Header.Set(HeaderPartialData, "recentActivity")
	page = decodePage(t, render(r))

	if _, ok := page.Props["recentActivity"]; !ok {
		t.Errorf("partial reload missing deferred prop: %v", page.Props)
	}
	if _, ok := page.Props["greeting"]; ok {
		t.Error("partial reload included unselected prop")
	}
	if !invoked {
		t.Error("deferred thunk not evaluated on partial fetch")
	}
}

func TestRender_PartialPropOnlyOnDemand(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "users_show", []props.PropSpec{
			{Name: "user"},
			{Name: "audit_log", Partial: true},
		})
	})

	render := func(r *http.Request) Page {
		w := httptest.NewRecorder()
		h.handler.Render(w, r, "users_show", resolve.Checked(
			props.Prop{Name: "user", Value: "ada"},
			props.Prop{Name: "audit_log", Value: []string{"created"}},
		), RenderOptions{})
		return decodePage(t, w)
	}

	r := httptest.NewRequest(http.MethodGet, "/users/1", nil)
	r.Header.Set(HeaderInertia, "true")
	if page := render(r); page.Props["auditLog"] != nil {
		t.Error("partial-only prop included in full load")
	}

	r = httptest.NewRequest(http.MethodGet, "/users/1", nil)
	r.Header.Set(HeaderInertia, "true")
	r.Header.Set(HeaderPartialComponent, "Users/Show")
	r.Header.Set(HeaderPartialData, "auditLog")
	if page := render(r); page.Props["auditLog"] == nil {
		t.Error("partial-only prop missing when named by its advertised name")
	}
}

func TestRender_MergePropsRecorded(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "users_index", []props.PropSpec{
			{Name: "users", MergeMode: props.MergeShallow},
			{Name: "filters", Optional: true, MergeMode: props.MergeDeep},
		})
	})

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set(HeaderInertia, "true")
	w := httptest.NewRecorder()
	h.handler.Render(w, r, "users_index", resolve.Checked(
		props.Prop{Name: "users", Value: []string{"ada"}},
		props.Prop{Name: "filters", Value: map[string]any{"page": 1}},
	), RenderOptions{})

	page := decodePage(t, w)
	if len(page.MergeProps) != 1 || page.MergeProps[0] != "users" {
		t.Errorf("mergeProps = %v", page.MergeProps)
	}
	if len(page.DeepMergeProps) != 1 || page.DeepMergeProps[0] != "filters" {
		t.Errorf("deepMergeProps = %v", page.DeepMergeProps)
	}
}

func TestRender_OncePropMemoized(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "dashboard", []props.PropSpec{
			{Name: "stats", Once: &props.OnceSpec{Until: time.Hour}},
		})
	})

	calls := 0
	render := func() Page {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderInertia, "true")
		w := httptest.NewRecorder()
		h.handler.Render(w, r, "dashboard", resolve.Checked(
			props.Prop{Name: "stats", Value: func() (any, error) {
				calls++
				return map[string]any{"visits": calls}, nil
			}},
		), RenderOptions{})
		return decodePage(t, w)
	}

	render()
	second := render()
	if calls != 1 {
		t.Errorf("thunk calls = %d, want 1 (second render served from cache)", calls)
	}

	meta, ok := second.OnceProps["stats"]
	if !ok {
		t.Fatalf("onceProps = %v", second.OnceProps)
	}
	wantExpiry := h.clock.Now().Add(time.Hour).UnixMilli()
	if meta.Expiry != wantExpiry {
		t.Errorf("expiry = %d, want %d", meta.Expiry, wantExpiry)
	}

	// Past expiry the thunk runs again.
	h.clock.Advance(2 * time.Hour)
	render()
	if calls != 2 {
		t.Errorf("thunk calls = %d, want 2 after expiry", calls)
	}
}

func TestRender_LazyEvaluatedOnInclusion(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "users_index", []props.PropSpec{
			{Name: "permissions", Lazy: true},
		})
	})

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set(HeaderInertia, "true")
	w := httptest.NewRecorder()
	h.handler.Render(w, r, "users_index", resolve.Checked(
		props.Prop{Name: "permissions", Value: func() (any, error) {
			return []string{"read"}, nil
		}},
	), RenderOptions{})

	page := decodePage(t, w)
	got, ok := page.Props["permissions"].([]any)
	if !ok || len(got) != 1 || got[0] != "read" {
		t.Errorf("permissions = %v", page.Props["permissions"])
	}
}

func TestRender_ValidationFailureIs500(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {
		mustRegister(t, reg, "users_index", []props.PropSpec{
			{Name: "users"},
			{Name: "total_count"},
		})
	})

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set(HeaderInertia, "true")
	w := httptest.NewRecorder()
	h.handler.Render(w, r, "users_index", resolve.Checked(
		props.Prop{Name: "users", Value: nil},
	), RenderOptions{})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRender_UnknownPageIs500(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.handler.Render(w, r, "nope", resolve.Checked(), RenderOptions{})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestMiddleware_RequestID(t *testing.T) {
	h := newHarness(t, func(reg *registry.Registry) {})

	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	})

	w := httptest.NewRecorder()
	h.handler.Middleware(inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen != "req_1" {
		t.Errorf("context request id = %q, want req_1", seen)
	}
	if got := w.Header().Get(HeaderRequestID); got != "req_1" {
		t.Errorf("%s = %q", HeaderRequestID, got)
	}

	// An inbound id is preserved.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "upstream_7")
	w = httptest.NewRecorder()
	h.handler.Middleware(inner).ServeHTTP(w, r)
	if seen != "upstream_7" {
		t.Errorf("inbound id not preserved: %q", seen)
	}
}

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"total_count":     "totalCount",
		"users":           "users",
		"recent_activity": "recentActivity",
		"a_b_c":           "aBC",
	}
	for in, want := range cases {
		if got := snakeToCamel(in); got != want {
			t.Errorf("snakeToCamel(%q) = %q, want %q", in, got, want)
		}
	}
}
