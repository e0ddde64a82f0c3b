// Package resolve produces the final ordered prop map for a request from
// the page contract, the scope's shared providers, and the call site's
// explicit props. One resolution pass runs synchronously within a single
// request; the resolver itself performs no I/O and no retries.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nordbeam/nb-inertia-sub000/core/props"
	"github.com/nordbeam/nb-inertia-sub000/core/registry"
	"github.com/nordbeam/nb-inertia-sub000/core/validation"
	"github.com/nordbeam/nb-inertia-sub000/ports"
)

// Resolver resolves props against an immutable registry.
type Resolver struct {
	reg     *registry.Registry
	clock   ports.Clock
	observe ProviderObserverFunc
}

// New creates a resolver reading contracts and providers from reg.
func New(reg *registry.Registry, clock ports.Clock) *Resolver {
	return &Resolver{reg: reg, clock: clock}
}

// ProviderObserverFunc receives the outcome of every provider build:
// the provider name, the build duration, and the error (nil on success).
type ProviderObserverFunc func(provider string, d time.Duration, err error)

// SetObserver installs fn to observe provider builds, typically for
// metrics. Install during start-up; not safe to swap while resolving.
func (r *Resolver) SetObserver(fn ProviderObserverFunc) {
	r.observe = fn
}

// Options adjust a single resolution pass.
type Options struct {
	// DeepMerge merges nested map props recursively instead of
	// overwriting wholesale, both across providers and between the
	// provider accumulator and explicit props.
	DeepMerge bool

	// StrictRequired extends full call-site validation to unchecked
	// inputs, so missing required props fail on dynamic prop sets too.
	// Meant for development and test runs.
	StrictRequired bool
}

// Input is a call-site prop set. Checked inputs carry statically-known
// names and get full call-site validation; Unchecked inputs come from
// dynamic structures and only get best-effort runtime checks.
type Input struct {
	pairs  []props.Prop
	static bool
}

// Checked builds an input from a statically-known prop list. Resolution
// validates it against the contract: missing required props and
// undeclared names are both fatal.
func Checked(pairs ...props.Prop) Input {
	return Input{pairs: pairs, static: true}
}

// Unchecked builds an input from a dynamically-computed prop map.
// Static validation is skipped; undeclared names are still rejected at
// runtime. Keys are applied in sorted order for determinism.
func Unchecked(m map[string]any) Input {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]props.Prop, len(keys))
	for i, k := range keys {
		pairs[i] = props.Prop{Name: k, Value: m[k]}
	}
	return Input{pairs: pairs}
}

// ProviderError wraps a failure from a provider's BuildProps. The
// underlying error is propagated unmodified via Unwrap; the resolver
// performs no retry.
type ProviderError struct {
	Provider string
	Err      error
}

// Error returns the provider error message.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q: %v", e.Provider, e.Err)
}

// Unwrap returns the provider's original error.
func (e *ProviderError) Unwrap() error { return e.Err }

// Resolve produces the resolved prop bag for pageID: shared provider
// output first (registration order, later providers overriding earlier
// keys), then explicit props with their modifier markers applied.
func (r *Resolver) Resolve(ctx context.Context, req props.Request, pageID string, in Input, opts Options) (*props.Bag, error) {
	contract, ok := r.reg.Page(pageID)
	if !ok {
		return nil, fmt.Errorf("resolve: page %q not registered", pageID)
	}

	if in.static || opts.StrictRequired {
		names := make([]string, len(in.pairs))
		for i, p := range in.pairs {
			names[i] = p.Name
		}
		if err := validation.ValidateCallSite(contract, names); err != nil {
			return nil, err
		}
	}

	req.PageID = pageID
	if req.Scope == "" {
		req.Scope = r.reg.Scope(pageID)
	}

	bag, err := r.accumulateProviders(ctx, req, opts)
	if err != nil {
		return nil, err
	}

	for _, pair := range in.pairs {
		spec, declared := contract.Spec(pair.Name)
		if !declared {
			// Checked inputs were already validated; this is the
			// best-effort runtime check for dynamic inputs.
			return nil, &validation.UndeclaredPropsError{PageID: pageID, Props: []string{pair.Name}}
		}

		value, err := r.wrap(contract.ID, spec, pair.Value)
		if err != nil {
			return nil, err
		}

		if opts.DeepMerge {
			if existing, ok := bag.Get(pair.Name); ok {
				value = mergeIfMaps(existing, value)
			}
		}
		bag.Set(pair.Name, value)
	}

	// Sourced props not supplied explicitly are filled from the request
	// context under their declared source key.
	for _, spec := range contract.Schema {
		if spec.FromSource == "" {
			continue
		}
		if _, set := bag.Get(spec.Name); set {
			continue
		}
		if v, ok := req.Values[spec.FromSource]; ok {
			bag.Set(spec.Name, v)
		}
	}

	return bag, nil
}

// accumulateProviders runs the scope's providers in registration order
// and merges their outputs. Later providers override earlier keys; under
// deep merge, nested maps merge recursively instead.
func (r *Resolver) accumulateProviders(ctx context.Context, req props.Request, opts Options) (*props.Bag, error) {
	bag := props.NewBag()

	for _, entry := range r.reg.Providers(req.Scope) {
		if !entry.Included(req) {
			continue
		}

		start := time.Now()
		out, err := entry.Ref.BuildProps(ctx, req)
		if r.observe != nil {
			r.observe(entry.Ref.Name(), time.Since(start), err)
		}
		if err != nil {
			return nil, &ProviderError{Provider: entry.Ref.Name(), Err: err}
		}

		keys := make([]string, 0, len(out))
		for k := range out {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := out[k]
			if opts.DeepMerge {
				if existing, ok := bag.Get(k); ok {
					v = mergeIfMaps(existing, v)
				}
			}
			bag.Set(k, v)
		}
	}

	return bag, nil
}

// wrap applies the declared modifier set to an explicit prop value.
// Callers may pass a pre-built marker, which is used as-is apart from the
// outer merge directive. Partial takes precedence over defer and lazy;
// defer and once combine into the three-part marker.
func (r *Resolver) wrap(pageID string, spec props.PropSpec, value any) (any, error) {
	wrapped, err := r.wrapInner(pageID, spec, value)
	if err != nil {
		return nil, err
	}

	if spec.MergeMode != props.MergeNone {
		if _, already := wrapped.(props.MergeMarker); !already {
			wrapped = props.Merge(wrapped, spec.MergeMode == props.MergeDeep)
		}
	}
	return wrapped, nil
}

func (r *Resolver) wrapInner(pageID string, spec props.PropSpec, value any) (any, error) {
	if m, ok := value.(props.Marker); ok {
		return m, nil
	}

	var once *props.OnceConfig
	if spec.Once != nil {
		cfg, err := props.NormalizeOnce(*spec.Once, r.clock.Now())
		if err != nil {
			return nil, &props.ConfigError{PageID: pageID, Prop: spec.Name, Reason: err.Error()}
		}
		once = &cfg
	}

	switch {
	case spec.Partial:
		return props.Partial(value), nil
	case spec.DeferGroup != "" && once != nil:
		return props.DeferOnce(value, spec.DeferGroup, *once), nil
	case spec.DeferGroup != "":
		return props.Defer(value, spec.DeferGroup), nil
	case once != nil:
		return props.Once(value, *once), nil
	case spec.Lazy:
		return props.Lazy(value), nil
	default:
		return value, nil
	}
}

// mergeIfMaps deep-merges when both sides are plain maps; otherwise the
// incoming value wins wholesale. Marker-wrapped values never merge.
func mergeIfMaps(existing, incoming any) any {
	em, eok := existing.(map[string]any)
	im, iok := incoming.(map[string]any)
	if eok && iok {
		return props.DeepMerge(em, im)
	}
	return incoming
}
