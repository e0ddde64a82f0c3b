package web

import (
	"context"
	"net/http"
	"strings"
)

// Inertia protocol headers.
const (
	HeaderInertia          = "X-Inertia"
	HeaderVersion          = "X-Inertia-Version"
	HeaderLocation         = "X-Inertia-Location"
	HeaderPartialComponent = "X-Inertia-Partial-Component"
	HeaderPartialData      = "X-Inertia-Partial-Data"
	HeaderPartialExcept    = "X-Inertia-Partial-Except"
	HeaderRequestID        = "X-Request-Id"
)

// IsInertia reports whether the request came from the client-side
// renderer (vs a full browser load).
func IsInertia(r *http.Request) bool {
	return r.Header.Get(HeaderInertia) == "true"
}

// Partial describes a partial-reload request: which component it targets
// and which props it selects.
type Partial struct {
	Component string
	Only      []string
	Except    []string
}

// PartialFor parses the partial-reload headers. It returns nil when the
// request is not a partial reload or targets a different component, in
// which case a full page load is served.
func PartialFor(r *http.Request, component string) *Partial {
	target := r.Header.Get(HeaderPartialComponent)
	if target == "" || target != component {
		return nil
	}

	p := &Partial{Component: target}
	if data := r.Header.Get(HeaderPartialData); data != "" {
		p.Only = splitHeader(data)
	}
	if except := r.Header.Get(HeaderPartialExcept); except != "" {
		p.Except = splitHeader(except)
	}
	return p
}

// Wants reports whether the partial reload includes name. With an Only
// list, membership decides; otherwise anything not excepted is included.
func (p *Partial) Wants(name string) bool {
	if len(p.Only) > 0 {
		return containsName(p.Only, name)
	}
	return !containsName(p.Except, name)
}

// staleVersion reports whether the client's asset version is behind.
// Only Inertia GETs participate in the refresh flow.
func staleVersion(r *http.Request, current string) bool {
	if !IsInertia(r) || r.Method != http.MethodGet || current == "" {
		return false
	}
	sent := r.Header.Get(HeaderVersion)
	return sent != "" && sent != current
}

// Location sends an external redirect through the Inertia refresh flow:
// 409 plus X-Inertia-Location makes the client do a full visit.
func Location(w http.ResponseWriter, url string) {
	w.Header().Set(HeaderLocation, url)
	w.WriteHeader(http.StatusConflict)
}

// Redirect issues an internal redirect. PUT, PATCH and DELETE downgrade
// to 303 so the follow-up request is a GET.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	status := http.StatusFound
	switch r.Method {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		status = http.StatusSeeOther
	}
	http.Redirect(w, r, url, status)
}

func splitHeader(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsName(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

type ctxKey int

const requestIDKey ctxKey = 0

// withRequestID stores the request id on the context.
func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stamped by the middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
