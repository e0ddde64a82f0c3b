// Package registry manages page-contract and shared-provider registration.
// It detects duplicate declarations at registration time and provides
// read-only lookup for the request path. Registration happens once at
// start-up; Freeze makes later registration a hard error so concurrent
// request-time reads need no coordination beyond the registry's own lock.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nordbeam/nb-inertia-sub000/core/naming"
	"github.com/nordbeam/nb-inertia-sub000/core/props"
)

// DefaultScope groups pages that declare no explicit scope.
const DefaultScope = "default"

// PageOptions customize a page registration.
type PageOptions struct {
	// Component overrides the inferred component path.
	Component string

	// TypeName overrides the advertised prop type name.
	TypeName string

	// Scope assigns the page to a provider scope ("" = DefaultScope).
	Scope string
}

// ProviderOptions customize a provider registration.
type ProviderOptions struct {
	// Only restricts the provider to the listed actions.
	Only []string

	// Except excludes the provider from the listed actions.
	Except []string

	// When is an arbitrary guard evaluated per request.
	When func(req props.Request) bool
}

// ProviderEntry is a registered provider with its inclusion predicate.
// Entries apply in registration order; later entries override earlier
// keys when their outputs collide.
type ProviderEntry struct {
	Ref     props.Provider
	Order   int
	Only    []string
	Except  []string
	When    func(req props.Request) bool
	Produce []string
}

// Included evaluates the entry's inclusion predicate for a request.
// Only and Except match against req.Action; When runs last.
func (e ProviderEntry) Included(req props.Request) bool {
	if len(e.Only) > 0 && !contains(e.Only, req.Action) {
		return false
	}
	if contains(e.Except, req.Action) {
		return false
	}
	if e.When != nil && !e.When(req) {
		return false
	}
	return true
}

// Registry stores page contracts and shared providers.
type Registry struct {
	mu     sync.RWMutex
	frozen bool

	pages  map[string]*props.PageContract
	scopes map[string]string // page id -> scope

	providers map[string][]ProviderEntry // scope -> ordered entries
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		pages:     make(map[string]*props.PageContract),
		scopes:    make(map[string]string),
		providers: make(map[string][]ProviderEntry),
	}
}

// RegistrationError reports an invalid registration: a duplicate page id,
// a duplicate prop name within one schema, or registration after Freeze.
// Registration errors are build-time and fatal.
type RegistrationError struct {
	PageID string
	Reason string
}

// Error returns the registration error message.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register page %q: %s", e.PageID, e.Reason)
}

// RegisterPage registers a contract for pageID with the given schema.
// The component path is inferred from pageID unless opts overrides it.
func (r *Registry) RegisterPage(pageID string, schema []props.PropSpec, opts PageOptions) (*props.PageContract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, &RegistrationError{PageID: pageID, Reason: "registry is frozen"}
	}
	if _, exists := r.pages[pageID]; exists {
		return nil, &RegistrationError{PageID: pageID, Reason: "page already registered"}
	}

	seen := make(map[string]bool, len(schema))
	for _, p := range schema {
		if seen[p.Name] {
			return nil, &RegistrationError{
				PageID: pageID,
				Reason: fmt.Sprintf("duplicate prop %q in schema", p.Name),
			}
		}
		seen[p.Name] = true
	}

	component := opts.Component
	if component == "" {
		component = naming.Infer(pageID)
	}

	scope := opts.Scope
	if scope == "" {
		scope = DefaultScope
	}

	contract := &props.PageContract{
		ID:        pageID,
		Component: component,
		TypeName:  opts.TypeName,
		Schema:    append([]props.PropSpec(nil), schema...),
	}

	r.pages[pageID] = contract
	r.scopes[pageID] = scope

	return contract, nil
}

// RegisterProvider appends a provider to the scope's ordered list.
// produces lists the prop names the provider emits; scope collision
// validation reads it so collisions surface before any request is served.
func (r *Registry) RegisterProvider(scope string, ref props.Provider, produces []string, opts ProviderOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return &RegistrationError{PageID: scope, Reason: "registry is frozen"}
	}
	if scope == "" {
		scope = DefaultScope
	}

	entry := ProviderEntry{
		Ref:     ref,
		Order:   len(r.providers[scope]),
		Only:    append([]string(nil), opts.Only...),
		Except:  append([]string(nil), opts.Except...),
		When:    opts.When,
		Produce: append([]string(nil), produces...),
	}
	r.providers[scope] = append(r.providers[scope], entry)
	return nil
}

// Freeze marks the end of start-up registration. After Freeze the
// registry is immutable and safe for unsynchronized concurrent reads.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Page returns the contract registered for pageID.
func (r *Registry) Page(pageID string) (*props.PageContract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.pages[pageID]
	return c, ok
}

// Scope returns the provider scope pageID belongs to.
func (r *Registry) Scope(pageID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.scopes[pageID]; ok {
		return s
	}
	return DefaultScope
}

// Providers returns the scope's providers in registration order.
func (r *Registry) Providers(scope string) []ProviderEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := append([]ProviderEntry(nil), r.providers[scope]...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Order < entries[j].Order
	})
	return entries
}

// Pages returns all contracts sorted by page id for consistent listing.
func (r *Registry) Pages() []*props.PageContract {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*props.PageContract, 0, len(r.pages))
	for _, c := range r.pages {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ScopeNames returns all scopes that have pages or providers.
func (r *Registry) ScopeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]bool)
	for _, s := range r.scopes {
		set[s] = true
	}
	for s := range r.providers {
		set[s] = true
	}

	names := make([]string, 0, len(set))
	for s := range set {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
