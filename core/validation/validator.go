// Package validation checks page contracts against call-site prop sets
// and against the shared providers in their scope. All checks here are
// build-time and fail fast: catching an integration mistake at start-up
// is preferred over degrading at request time.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nordbeam/nb-inertia-sub000/core/props"
	"github.com/nordbeam/nb-inertia-sub000/core/registry"
)

// MissingPropsError reports required props absent from a call site.
type MissingPropsError struct {
	PageID string
	Props  []string
}

// Error returns the missing-props message.
func (e *MissingPropsError) Error() string {
	return fmt.Sprintf("page %q: missing required props: %s", e.PageID, strings.Join(e.Props, ", "))
}

// UndeclaredPropsError reports call-site props absent from the schema.
type UndeclaredPropsError struct {
	PageID string
	Props  []string
}

// Error returns the undeclared-props message.
func (e *UndeclaredPropsError) Error() string {
	return fmt.Sprintf("page %q: undeclared props: %s", e.PageID, strings.Join(e.Props, ", "))
}

// CollisionError reports prop names claimed by both a page schema and a
// provider in the page's scope.
type CollisionError struct {
	PageID   string
	Scope    string
	Provider string
	Props    []string
}

// Error returns the collision message.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("page %q: props %s collide with provider %q in scope %q",
		e.PageID, strings.Join(e.Props, ", "), e.Provider, e.Scope)
}

// ValidateCallSite checks a statically-known call-site prop set against
// the contract. Missing required props are reported before undeclared
// extras. Dynamic prop sets bypass this check and rely on runtime
// assertions instead.
func ValidateCallSite(c *props.PageContract, supplied []string) error {
	have := make(map[string]bool, len(supplied))
	for _, name := range supplied {
		have[name] = true
	}

	var missing []string
	for _, name := range c.RequiredNames() {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingPropsError{PageID: c.ID, Props: missing}
	}

	declared := make(map[string]bool, len(c.Schema))
	for _, p := range c.Schema {
		declared[p.Name] = true
	}

	var extra []string
	for _, name := range supplied {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return &UndeclaredPropsError{PageID: c.ID, Props: extra}
	}

	return nil
}

// ValidateScope checks that no prop name is claimed by both the contract
// and any provider in the same scope. It runs once per scope at start-up,
// independent of any request.
func ValidateScope(c *props.PageContract, scope string, providers []registry.ProviderEntry) error {
	declared := make(map[string]bool, len(c.Schema))
	for _, p := range c.Schema {
		declared[p.Name] = true
	}

	for _, entry := range providers {
		var clash []string
		for _, name := range entry.Produce {
			if declared[name] {
				clash = append(clash, name)
			}
		}
		if len(clash) > 0 {
			sort.Strings(clash)
			return &CollisionError{
				PageID:   c.ID,
				Scope:    scope,
				Provider: entry.Ref.Name(),
				Props:    clash,
			}
		}
	}

	return nil
}

// ValidateRegistry runs scope validation for every registered page.
// It returns all failures so operators see the complete list at once.
func ValidateRegistry(reg *registry.Registry) []error {
	var errs []error
	for _, c := range reg.Pages() {
		scope := reg.Scope(c.ID)
		if err := ValidateScope(c, scope, reg.Providers(scope)); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
