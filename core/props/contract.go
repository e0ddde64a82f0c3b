// Package props defines the core types for declarative page contracts.
// A contract describes the data payload a named page expects: which props
// exist, which are required, and how each one is computed or transmitted.
package props

import (
	"context"
	"fmt"
)

// PageContract is the declared metadata for a named page.
// Contracts are created during start-up registration and never mutated.
type PageContract struct {
	// ID is the page identifier (e.g., "users_index").
	ID string

	// Component is the display path the client renderer resolves
	// (e.g., "Users/Index"). Inferred from ID unless overridden.
	Component string

	// TypeName optionally overrides the type name advertised to
	// static-analysis collaborators for this page's prop shape.
	TypeName string

	// Schema lists the declared props in declaration order.
	Schema []PropSpec
}

// PropSpec declares a single prop within a page contract.
type PropSpec struct {
	// Name of the prop as supplied by call sites.
	Name string

	// Type is a free-form type annotation for tooling (e.g., "[]User").
	Type string

	// Optional marks the prop as not required at call sites.
	Optional bool

	// Nullable indicates the prop value may be nil.
	Nullable bool

	// Lazy wraps the value as a thunk evaluated by the transport on demand.
	Lazy bool

	// DeferGroup, when non-empty, defers the prop into the named group.
	DeferGroup string

	// MergeMode attaches a merge directive consumed by the transport.
	MergeMode MergeMode

	// Partial marks the prop as included only on explicit partial reloads.
	Partial bool

	// Once configures time-bounded client-side caching for the prop.
	Once *OnceSpec

	// FromSource names an external source the transport fills the prop
	// from; such props are never required at call sites.
	FromSource string
}

// Required reports whether the prop must be present in every
// statically-known call-site prop set. A prop is required iff none of
// the presence-relaxing modifiers is set.
func (p PropSpec) Required() bool {
	return !p.Optional && !p.Lazy && p.DeferGroup == "" && !p.Partial &&
		p.Once == nil && p.FromSource == ""
}

// MergeMode selects how the client merges a prop into existing page state.
type MergeMode int

const (
	// MergeNone replaces the prop wholesale (the default).
	MergeNone MergeMode = iota

	// MergeShallow merges top-level keys only.
	MergeShallow

	// MergeDeep merges nested maps recursively.
	MergeDeep
)

// String returns the mode name used in CLI output and logs.
func (m MergeMode) String() string {
	switch m {
	case MergeShallow:
		return "shallow"
	case MergeDeep:
		return "deep"
	default:
		return "none"
	}
}

// OnceSpec configures a once-prop as declared in a contract. Until is
// normalized to epoch-millis at wrap time; see NormalizeUntil.
type OnceSpec struct {
	// Fresh forces recomputation on every visit, bypassing the cache.
	Fresh bool

	// Until bounds the cache lifetime. Accepts a time.Duration, a
	// time.Time, an int64/float64 epoch-millis value, or a duration
	// string such as "24h". Nil means no expiry.
	Until any

	// CacheKey overrides the cache key (defaults to page id + prop name).
	CacheKey string
}

// OnceConfig is the fully-normalized form of an OnceSpec, stamped onto
// a marker at wrap time.
type OnceConfig struct {
	// Fresh forces recomputation on every visit.
	Fresh bool

	// Expiry is the absolute expiry in epoch-millis, 0 if unbounded.
	Expiry int64

	// CacheKey identifies the cache entry, "" for the default key.
	CacheKey string
}

// DeclaredNames returns the names of all props in schema order.
func (c *PageContract) DeclaredNames() []string {
	names := make([]string, len(c.Schema))
	for i, p := range c.Schema {
		names[i] = p.Name
	}
	return names
}

// RequiredNames returns the names of all required props in schema order.
func (c *PageContract) RequiredNames() []string {
	var names []string
	for _, p := range c.Schema {
		if p.Required() {
			names = append(names, p.Name)
		}
	}
	return names
}

// Spec returns the PropSpec for name.
func (c *PageContract) Spec(name string) (PropSpec, bool) {
	for _, p := range c.Schema {
		if p.Name == name {
			return p, true
		}
	}
	return PropSpec{}, false
}

// Prop is a single named value supplied by a call site. The value may be
// a raw value or an already-constructed Marker.
type Prop struct {
	Name  string
	Value any
}

// Request carries the per-request inputs a provider or resolver sees.
// It is created fresh for each incoming request and discarded afterward.
type Request struct {
	// PageID is the page being resolved.
	PageID string

	// Action is the current action name used by provider inclusion
	// predicates (conventionally the trailing segment of PageID).
	Action string

	// Scope groups pages sharing the same provider set.
	Scope string

	// Partial reports whether this is a follow-up partial reload.
	Partial bool

	// Values holds transport-supplied context (session, flash, URL).
	Values map[string]any
}

// Provider is a reusable source of props automatically included in
// matching requests' payloads. BuildProps may block on I/O; cancellation
// is the caller's responsibility via ctx.
type Provider interface {
	// Name identifies the provider in errors and logs.
	Name() string

	// BuildProps returns the provider's contribution for this request.
	BuildProps(ctx context.Context, req Request) (map[string]any, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	ProviderName string
	Build        func(ctx context.Context, req Request) (map[string]any, error)
}

// Name returns the provider name.
func (f ProviderFunc) Name() string { return f.ProviderName }

// BuildProps invokes the wrapped function.
func (f ProviderFunc) BuildProps(ctx context.Context, req Request) (map[string]any, error) {
	return f.Build(ctx, req)
}

// ConfigError reports a malformed modifier option on a declared prop.
// It is surfaced at first use of the offending page.
type ConfigError struct {
	PageID string
	Prop   string
	Reason string
}

// Error returns the configuration error message.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("page %q prop %q: %s", e.PageID, e.Prop, e.Reason)
}
