// Package web is the HTTP transport for the page-contract engine. It
// speaks the Inertia protocol: first loads get an HTML shell embedding
// the JSON page object, subsequent visits get JSON, and partial reloads
// select individual props. The engine produces markers; this package
// decides whether and when their thunks run.
package web

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nordbeam/nb-inertia-sub000/adapters/metrics"
	"github.com/nordbeam/nb-inertia-sub000/core/registry"
	"github.com/nordbeam/nb-inertia-sub000/core/resolve"
	"github.com/nordbeam/nb-inertia-sub000/ports"
)

// defaultShell is the built-in HTML shell for first loads.
const defaultShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<div id="app" data-page="{{.Page}}"></div>
</body>
</html>
`

// Options configures a Handler.
type Options struct {
	Registry  *registry.Registry
	Resolver  *resolve.Resolver
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	OnceCache ports.OnceCache
	Metrics   *metrics.Collector
	Logger    zerolog.Logger

	// Version returns the current asset version; stale clients get a
	// 409 refresh on their next GET.
	Version func() string

	// RootTemplatePath loads an external HTML shell; empty uses the
	// built-in one. The template receives {{.Page}} (JSON string).
	RootTemplatePath string

	// CamelCaseProps converts snake_case prop names to camelCase in the
	// serialized payload.
	CamelCaseProps bool

	// StrictRuntimeChecks asserts required props on unchecked (dynamic)
	// inputs as well. Meant for development and test runs.
	StrictRuntimeChecks bool
}

// Handler renders pages over the Inertia protocol.
type Handler struct {
	registry  *registry.Registry
	resolver  *resolve.Resolver
	clock     ports.Clock
	idgen     ports.IDGenerator
	onceCache ports.OnceCache
	metrics   *metrics.Collector
	logger    zerolog.Logger
	version   func() string
	camelCase bool
	strict    bool
	tmpl      *template.Template
}

// New creates a Handler from opts.
func New(opts Options) (*Handler, error) {
	h := &Handler{
		registry:  opts.Registry,
		resolver:  opts.Resolver,
		clock:     opts.Clock,
		idgen:     opts.IDGen,
		onceCache: opts.OnceCache,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		version:   opts.Version,
		camelCase: opts.CamelCaseProps,
		strict:    opts.StrictRuntimeChecks,
	}
	if h.version == nil {
		h.version = func() string { return "" }
	}

	shell := defaultShell
	if opts.RootTemplatePath != "" {
		data, err := os.ReadFile(opts.RootTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("read root template: %w", err)
		}
		shell = string(data)
	}

	tmpl, err := template.New("shell").Parse(shell)
	if err != nil {
		return nil, fmt.Errorf("parse root template: %w", err)
	}
	h.tmpl = tmpl

	return h, nil
}

// Middleware returns the standard middleware stack: request id stamping
// and zerolog request logging.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" && h.idgen != nil {
			reqID = h.idgen.New()
		}
		if reqID != "" {
			w.Header().Set(HeaderRequestID, reqID)
		}

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r.WithContext(withRequestID(r.Context(), reqID)))

		h.logger.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Bool("inertia", IsInertia(r)).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Mount attaches operational endpoints (metrics, health) to the router.
func (h *Handler) Mount(r chi.Router, metricsPath string) {
	if metricsPath != "" {
		r.Handle(metricsPath, promhttp.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// statusWriter records the response status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader records the status code.
func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
