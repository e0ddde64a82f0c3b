package props

import (
	"fmt"
	"strconv"
	"time"
)

// Thunk is a deferred prop computation. The engine never invokes thunks;
// the transport decides whether and when to call one.
type Thunk func() (any, error)

// Marker is the closed set of modifier wrappers a resolved prop value may
// carry. A ResolvedPropBag maps names to raw values or Markers; the
// transport pattern-matches on the concrete type.
type Marker interface {
	marker()
}

// LazyMarker wraps a prop evaluated only when the transport asks for it.
type LazyMarker struct {
	Fn Thunk
}

// DeferMarker wraps a prop excluded from the initial payload and fetched
// by the client in a named group after first render.
type DeferMarker struct {
	Fn    Thunk
	Group string
}

// OnceMarker wraps a prop cached client-side until its freshness
// condition or expiry is reached.
type OnceMarker struct {
	Fn     Thunk
	Config OnceConfig
}

// DeferOnceMarker combines defer and once: deferred into Group and cached
// under Config. It is distinct from either marker alone so both the group
// and the cache metadata survive losslessly.
type DeferOnceMarker struct {
	Fn     Thunk
	Group  string
	Config OnceConfig
}

// PartialMarker wraps an optional-on-demand prop: excluded from the
// initial payload and included only when a partial reload names it.
// Unlike LazyMarker it is never evaluated on full loads.
type PartialMarker struct {
	Fn Thunk
}

// MergeMarker is the outermost wrapper carrying a merge directive for the
// transport. Inner is a raw value or any other Marker.
type MergeMarker struct {
	Inner any
	Deep  bool
}

func (LazyMarker) marker()      {}
func (DeferMarker) marker()     {}
func (OnceMarker) marker()      {}
func (DeferOnceMarker) marker() {}
func (PartialMarker) marker()   {}
func (MergeMarker) marker()     {}

// DefaultDeferGroup is the group used when defer is requested without one.
const DefaultDeferGroup = "default"

// Lazy wraps v as a lazily-evaluated prop. If v is already a Thunk or a
// compatible function it is passed through unchanged.
func Lazy(v any) LazyMarker {
	return LazyMarker{Fn: AsThunk(v)}
}

// Defer wraps v into the named defer group ("" selects the default group).
func Defer(v any, group string) DeferMarker {
	if group == "" {
		group = DefaultDeferGroup
	}
	return DeferMarker{Fn: AsThunk(v), Group: group}
}

// Once wraps v with normalized cache metadata.
func Once(v any, cfg OnceConfig) OnceMarker {
	return OnceMarker{Fn: AsThunk(v), Config: cfg}
}

// DeferOnce combines Defer and Once into the three-part marker.
func DeferOnce(v any, group string, cfg OnceConfig) DeferOnceMarker {
	if group == "" {
		group = DefaultDeferGroup
	}
	return DeferOnceMarker{Fn: AsThunk(v), Group: group, Config: cfg}
}

// Partial wraps v as an optional-on-demand prop.
func Partial(v any) PartialMarker {
	return PartialMarker{Fn: AsThunk(v)}
}

// Merge wraps inner (a raw value or Marker) with a merge directive.
func Merge(inner any, deep bool) MergeMarker {
	return MergeMarker{Inner: inner, Deep: deep}
}

// AsThunk converts v into a Thunk. Callables pass through; plain values
// are captured in a closure returning them.
func AsThunk(v any) Thunk {
	switch fn := v.(type) {
	case Thunk:
		return fn
	case func() (any, error):
		return fn
	case func() any:
		return func() (any, error) { return fn(), nil }
	default:
		return func() (any, error) { return v, nil }
	}
}

// Unwrap strips a MergeMarker, returning the inner value and the
// directive. Non-merge values are returned unchanged.
func Unwrap(v any) (inner any, mode MergeMode) {
	if m, ok := v.(MergeMarker); ok {
		if m.Deep {
			return m.Inner, MergeDeep
		}
		return m.Inner, MergeShallow
	}
	return v, MergeNone
}

// NormalizeUntil resolves an OnceSpec.Until value to absolute
// epoch-millis relative to now. Accepted forms: time.Duration, duration
// string ("24h"), time.Time, int64/int/float64 epoch-millis. A nil until
// yields 0 (no expiry).
func NormalizeUntil(until any, now time.Time) (int64, error) {
	switch u := until.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return now.Add(u).UnixMilli(), nil
	case time.Time:
		return u.UnixMilli(), nil
	case int64:
		return u, nil
	case int:
		return int64(u), nil
	case float64:
		return int64(u), nil
	case string:
		d, err := time.ParseDuration(u)
		if err != nil {
			return 0, fmt.Errorf("unparseable duration %q", u)
		}
		return now.Add(d).UnixMilli(), nil
	default:
		return 0, fmt.Errorf("unsupported until type %T", until)
	}
}

// NormalizeOnce resolves an OnceSpec into its stamped OnceConfig.
func NormalizeOnce(spec OnceSpec, now time.Time) (OnceConfig, error) {
	expiry, err := NormalizeUntil(spec.Until, now)
	if err != nil {
		return OnceConfig{}, err
	}
	return OnceConfig{
		Fresh:    spec.Fresh,
		Expiry:   expiry,
		CacheKey: spec.CacheKey,
	}, nil
}

// CacheKeyFor returns the effective cache key for a once-prop.
func (c OnceConfig) CacheKeyFor(pageID, prop string) string {
	if c.CacheKey != "" {
		return c.CacheKey
	}
	return pageID + ":" + prop
}

// Expired reports whether the entry is past its expiry at now.
func (c OnceConfig) Expired(now time.Time) bool {
	return c.Expiry != 0 && now.UnixMilli() >= c.Expiry
}

// String summarizes the config for logs and CLI output.
func (c OnceConfig) String() string {
	s := "once"
	if c.Fresh {
		s += " fresh"
	}
	if c.Expiry != 0 {
		s += " until=" + strconv.FormatInt(c.Expiry, 10)
	}
	if c.CacheKey != "" {
		s += " key=" + c.CacheKey
	}
	return s
}
