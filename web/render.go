package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nordbeam/nb-inertia-sub000/core/naming"
	"github.com/nordbeam/nb-inertia-sub000/core/props"
	"github.com/nordbeam/nb-inertia-sub000/core/resolve"
	"github.com/nordbeam/nb-inertia-sub000/core/validation"
	"github.com/nordbeam/nb-inertia-sub000/ports"
)

// Page is the serialized page object the client renderer consumes.
type Page struct {
	Component      string              `json:"component"`
	Props          map[string]any      `json:"props"`
	URL            string              `json:"url"`
	Version        string              `json:"version"`
	DeferredProps  map[string][]string `json:"deferredProps,omitempty"`
	MergeProps     []string            `json:"mergeProps,omitempty"`
	DeepMergeProps []string            `json:"deepMergeProps,omitempty"`
	OnceProps      map[string]OnceMeta `json:"onceProps,omitempty"`
}

// OnceMeta is the client-facing cache metadata for a once-prop.
type OnceMeta struct {
	Expiry   int64  `json:"expiry,omitempty"`
	CacheKey string `json:"cacheKey,omitempty"`
	Fresh    bool   `json:"fresh,omitempty"`
}

// RenderOptions adjust a single render.
type RenderOptions struct {
	// DeepMerge enables recursive merging of shared and explicit props
	// for this request, overriding the plain-overwrite default.
	DeepMerge bool
}

// Render resolves pageID's props and writes the page response: JSON for
// Inertia visits, the HTML shell otherwise. Resolution and validation
// errors are logged and surfaced as 500s; a stale asset version on a GET
// short-circuits to the 409 refresh flow.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request, pageID string, in resolve.Input, opts RenderOptions) {
	start := time.Now()

	contract, ok := h.registry.Page(pageID)
	if !ok {
		h.fail(w, r, pageID, fmt.Errorf("page %q not registered", pageID))
		return
	}

	version := h.version()
	if staleVersion(r, version) {
		if h.metrics != nil {
			h.metrics.VersionConflict.Inc()
		}
		Location(w, r.URL.String())
		return
	}

	partial := PartialFor(r, contract.Component)
	if partial != nil && h.metrics != nil {
		h.metrics.PartialReloads.Inc()
	}

	req := props.Request{
		PageID:  pageID,
		Action:  naming.Action(pageID),
		Scope:   h.registry.Scope(pageID),
		Partial: partial != nil,
		Values: map[string]any{
			"url":        r.URL.String(),
			"request_id": RequestID(r.Context()),
		},
	}

	bag, err := h.resolver.Resolve(r.Context(), req, pageID, in, resolve.Options{
		DeepMerge:      opts.DeepMerge,
		StrictRequired: h.strict,
	})
	if err != nil {
		h.observeResolution(pageID, "error", start)
		h.countValidationFailure(pageID, err)
		h.fail(w, r, pageID, err)
		return
	}

	page, err := h.buildPage(r.Context(), contract.ID, contract.Component, version, r.URL.String(), bag, partial)
	if err != nil {
		h.observeResolution(pageID, "error", start)
		h.fail(w, r, pageID, err)
		return
	}

	h.observeResolution(pageID, "ok", start)

	if IsInertia(r) {
		h.writeJSON(w, page)
		return
	}
	h.writeShell(w, page)
}

// buildPage evaluates the resolved bag into the serialized page object.
// Marker semantics: partial props appear only when a partial reload names
// them; deferred props are advertised in deferredProps on full loads and
// evaluated when fetched; lazy and once thunks run on inclusion, once
// values going through the server-side cache first.
func (h *Handler) buildPage(ctx context.Context, pageID, component, version, url string, bag *props.Bag, partial *Partial) (*Page, error) {
	page := &Page{
		Component: component,
		Props:     make(map[string]any, bag.Len()),
		URL:       url,
		Version:   version,
	}

	err := bag.Each(func(name string, value any) error {
		inner, mode := props.Unwrap(value)

		// Partial selection matches the client-facing name: the envelope
		// advertises cased names and the client echoes them back.
		cased := h.caseName(name)

		include, deferred, group, once, thunk := h.classify(cased, inner, partial)
		if deferred {
			if page.DeferredProps == nil {
				page.DeferredProps = make(map[string][]string)
			}
			page.DeferredProps[group] = append(page.DeferredProps[group], cased)
			return nil
		}
		if !include {
			return nil
		}

		switch mode {
		case props.MergeShallow:
			page.MergeProps = append(page.MergeProps, cased)
		case props.MergeDeep:
			page.DeepMergeProps = append(page.DeepMergeProps, cased)
		}

		var out any
		if thunk != nil {
			var err error
			if once != nil {
				out, err = h.evalOnce(ctx, pageID, name, *once, thunk)
			} else {
				out, err = thunk()
			}
			if err != nil {
				return fmt.Errorf("prop %q: %w", name, err)
			}
		} else {
			out = inner
		}

		if once != nil {
			if page.OnceProps == nil {
				page.OnceProps = make(map[string]OnceMeta)
			}
			page.OnceProps[cased] = OnceMeta{
				Expiry:   once.Expiry,
				CacheKey: once.CacheKey,
				Fresh:    once.Fresh,
			}
		}

		page.Props[cased] = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

// classify maps a marker to its transport decision for this request:
// whether the prop is included now, advertised as deferred, and which
// thunk and once-config apply. name is the client-facing (cased) name,
// since partial selection headers carry what the envelope advertised.
func (h *Handler) classify(name string, inner any, partial *Partial) (include bool, deferred bool, group string, once *props.OnceConfig, thunk props.Thunk) {
	switch m := inner.(type) {
	case props.LazyMarker:
		return wanted(partial, name), false, "", nil, m.Fn
	case props.PartialMarker:
		// Optional-on-demand: included only when a partial reload names
		// it explicitly, never via an except-style selection.
		if partial == nil || len(partial.Only) == 0 {
			return false, false, "", nil, nil
		}
		return partial.Wants(name), false, "", nil, m.Fn
	case props.DeferMarker:
		if partial == nil {
			return false, true, m.Group, nil, nil
		}
		return partial.Wants(name), false, "", nil, m.Fn
	case props.OnceMarker:
		cfg := m.Config
		return wanted(partial, name), false, "", &cfg, m.Fn
	case props.DeferOnceMarker:
		cfg := m.Config
		if partial == nil {
			return false, true, m.Group, &cfg, nil
		}
		return partial.Wants(name), false, "", &cfg, m.Fn
	default:
		return wanted(partial, name), false, "", nil, nil
	}
}

// wanted applies the partial selection to a normally-included prop.
func wanted(partial *Partial, name string) bool {
	if partial == nil {
		return true
	}
	return partial.Wants(name)
}

// evalOnce evaluates a once-prop through the server-side cache: a live
// entry short-circuits the thunk; a miss stores the fresh value under the
// stamped expiry. Fresh configs always recompute.
func (h *Handler) evalOnce(ctx context.Context, pageID, name string, cfg props.OnceConfig, thunk props.Thunk) (any, error) {
	if h.onceCache == nil || cfg.Fresh {
		return thunk()
	}

	key := cfg.CacheKeyFor(pageID, name)
	now := h.clock.Now()

	if entry, err := h.onceCache.Get(ctx, key, now); err == nil {
		if h.metrics != nil {
			h.metrics.OnceCacheHits.Inc()
		}
		var out any
		if err := json.Unmarshal(entry.Value, &out); err != nil {
			return nil, fmt.Errorf("decode cached once prop: %w", err)
		}
		return out, nil
	} else if !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}

	if h.metrics != nil {
		h.metrics.OnceCacheMisses.Inc()
	}

	out, err := thunk()
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode once prop: %w", err)
	}
	if err := h.onceCache.Put(ctx, ports.OnceEntry{Key: key, Value: encoded, Expiry: cfg.Expiry}); err != nil {
		return nil, err
	}
	return out, nil
}

// caseName converts a prop name for the client payload.
func (h *Handler) caseName(name string) string {
	if !h.camelCase {
		return name
	}
	return snakeToCamel(name)
}

// snakeToCamel converts snake_case to camelCase; names without
// underscores pass through unchanged.
func snakeToCamel(s string) string {
	var b bytes.Buffer
	upper := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		b.WriteByte(c)
	}
	return b.String()
}

func (h *Handler) writeJSON(w http.ResponseWriter, page *Page) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderInertia, "true")
	w.Header().Set("Vary", HeaderInertia)
	if err := json.NewEncoder(w).Encode(page); err != nil {
		h.logger.Error().Err(err).Msg("encode page response")
	}
}

func (h *Handler) writeShell(w http.ResponseWriter, page *Page) {
	encoded, err := json.Marshal(page)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode page object")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, map[string]any{"Page": string(encoded)}); err != nil {
		h.logger.Error().Err(err).Msg("render shell")
	}
}

// fail logs the error and writes a 500. Validation failures reaching the
// request path indicate an integration bug; they are never retried.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, pageID string, err error) {
	h.logger.Error().
		Err(err).
		Str("page", pageID).
		Str("request_id", RequestID(r.Context())).
		Msg("render failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *Handler) observeResolution(pageID, outcome string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.ResolutionsTotal.WithLabelValues(pageID, outcome).Inc()
	h.metrics.ResolutionDuration.WithLabelValues(pageID).Observe(time.Since(start).Seconds())
}

func (h *Handler) countValidationFailure(pageID string, err error) {
	if h.metrics == nil {
		return
	}

	var missing *validation.MissingPropsError
	var undeclared *validation.UndeclaredPropsError
	var cfg *props.ConfigError
	switch {
	case errors.As(err, &missing):
		h.metrics.ValidationFailures.WithLabelValues(pageID, "missing").Inc()
	case errors.As(err, &undeclared):
		h.metrics.ValidationFailures.WithLabelValues(pageID, "undeclared").Inc()
	case errors.As(err, &cfg):
		h.metrics.ValidationFailures.WithLabelValues(pageID, "config").Inc()
	}
}
