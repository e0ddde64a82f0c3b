package props

import (
	"testing"
	"time"
)

func TestAsThunk(t *testing.T) {
	// Plain values are captured.
	v, err := AsThunk(42)()
	if err != nil {
		t.Fatalf("AsThunk(42)() error = %v", err)
	}
	if v != 42 {
		t.Errorf("AsThunk(42)() = %v, want 42", v)
	}

	// Callables pass through.
	called := false
	fn := func() (any, error) {
		called = true
		return "x", nil
	}
	v, err = AsThunk(fn)()
	if err != nil || v != "x" {
		t.Errorf("AsThunk(fn)() = %v, %v", v, err)
	}
	if !called {
		t.Error("wrapped callable was not invoked")
	}

	// func() any is adapted.
	v, err = AsThunk(func() any { return 7 })()
	if err != nil || v != 7 {
		t.Errorf("AsThunk(func() any)() = %v, %v", v, err)
	}
}

func TestLazy_DoesNotEvaluate(t *testing.T) {
	evaluated := false
	m := Lazy(func() (any, error) {
		evaluated = true
		return nil, nil
	})
	if evaluated {
		t.Error("Lazy evaluated its thunk at wrap time")
	}
	if m.Fn == nil {
		t.Fatal("Lazy marker missing thunk")
	}
}

func TestDefer_DefaultGroup(t *testing.T) {
	if got := Defer(1, "").Group; got != DefaultDeferGroup {
		t.Errorf("Defer group = %q, want %q", got, DefaultDeferGroup)
	}
	if got := Defer(1, "sidebar").Group; got != "sidebar" {
		t.Errorf("Defer group = %q, want sidebar", got)
	}
}

func TestDeferOnce_Lossless(t *testing.T) {
	cfg := OnceConfig{Fresh: true, Expiry: 12345, CacheKey: "stats"}
	m := DeferOnce("v", "metrics", cfg)

	if m.Group != "metrics" {
		t.Errorf("Group = %q, want metrics", m.Group)
	}
	if m.Config != cfg {
		t.Errorf("Config = %+v, want %+v", m.Config, cfg)
	}

	// Distinct from either marker alone.
	var asMarker Marker = m
	if _, ok := asMarker.(DeferMarker); ok {
		t.Error("DeferOnceMarker should not be a DeferMarker")
	}
	if _, ok := asMarker.(OnceMarker); ok {
		t.Error("DeferOnceMarker should not be a OnceMarker")
	}
}

func TestUnwrap(t *testing.T) {
	inner, mode := Unwrap(Merge("v", true))
	if inner != "v" || mode != MergeDeep {
		t.Errorf("Unwrap(deep merge) = %v, %v", inner, mode)
	}

	inner, mode = Unwrap(Merge("v", false))
	if inner != "v" || mode != MergeShallow {
		t.Errorf("Unwrap(shallow merge) = %v, %v", inner, mode)
	}

	inner, mode = Unwrap("bare")
	if inner != "bare" || mode != MergeNone {
		t.Errorf("Unwrap(bare) = %v, %v", inner, mode)
	}

	// Merge composes around other markers.
	lazy := Lazy(1)
	inner, mode = Unwrap(Merge(lazy, true))
	if _, ok := inner.(LazyMarker); !ok || mode != MergeDeep {
		t.Errorf("Unwrap(merge(lazy)) = %T, %v", inner, mode)
	}
}

func TestNormalizeUntil(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		until any
		want  int64
	}{
		{"nil", nil, 0},
		{"duration", 24 * time.Hour, now.Add(24 * time.Hour).UnixMilli()},
		{"duration string", "90m", now.Add(90 * time.Minute).UnixMilli()},
		{"absolute time", now.Add(time.Hour), now.Add(time.Hour).UnixMilli()},
		{"epoch millis int64", int64(1750000000000), 1750000000000},
		{"epoch millis int", int(1750000000000), 1750000000000},
		{"epoch millis float", float64(1750000000000), 1750000000000},
	}

	for _, tt := range tests {
		got, err := NormalizeUntil(tt.until, now)
		if err != nil {
			t.Errorf("%s: NormalizeUntil error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: NormalizeUntil = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeUntil_Malformed(t *testing.T) {
	now := time.Now()

	if _, err := NormalizeUntil("not a duration", now); err == nil {
		t.Error("expected error for unparseable duration string")
	}
	if _, err := NormalizeUntil(struct{}{}, now); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestNormalizeUntil_24hWindow(t *testing.T) {
	// once(until: 24h) created at T must land within T+24h ± 5s.
	now := time.Now()
	got, err := NormalizeUntil(24*time.Hour, now)
	if err != nil {
		t.Fatalf("NormalizeUntil error = %v", err)
	}

	want := now.Add(24 * time.Hour).UnixMilli()
	tolerance := int64(5000)
	if got < want-tolerance || got > want+tolerance {
		t.Errorf("expiry = %d, want within %d ± %d", got, want, tolerance)
	}
}

func TestOnceConfig_CacheKeyFor(t *testing.T) {
	if got := (OnceConfig{}).CacheKeyFor("users_index", "stats"); got != "users_index:stats" {
		t.Errorf("default cache key = %q", got)
	}
	if got := (OnceConfig{CacheKey: "global_stats"}).CacheKeyFor("users_index", "stats"); got != "global_stats" {
		t.Errorf("explicit cache key = %q", got)
	}
}

func TestOnceConfig_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if (OnceConfig{}).Expired(now) {
		t.Error("unbounded config reported expired")
	}
	if (OnceConfig{Expiry: now.Add(time.Minute).UnixMilli()}).Expired(now) {
		t.Error("future expiry reported expired")
	}
	if !(OnceConfig{Expiry: now.Add(-time.Minute).UnixMilli()}).Expired(now) {
		t.Error("past expiry not reported expired")
	}
}
