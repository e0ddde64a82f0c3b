package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/nordbeam/nb-inertia-sub000/core/props"
)

func userIndexSchema() []props.PropSpec {
	return []props.PropSpec{
		{Name: "users", Type: "[]User"},
		{Name: "total_count", Type: "int"},
	}
}

func staticProvider(name string, out map[string]any) props.Provider {
	return props.ProviderFunc{
		ProviderName: name,
		Build: func(ctx context.Context, req props.Request) (map[string]any, error) {
			return out, nil
		},
	}
}

func TestRegisterPage(t *testing.T) {
	r := New()

	contract, err := r.RegisterPage("users_index", userIndexSchema(), PageOptions{})
	if err != nil {
		t.Fatalf("RegisterPage() error = %v", err)
	}
	if contract.Component != "Users/Index" {
		t.Errorf("Component = %q, want Users/Index", contract.Component)
	}

	got, ok := r.Page("users_index")
	if !ok || got.ID != "users_index" {
		t.Errorf("Page() = %+v, %v", got, ok)
	}
}

func TestRegisterPage_ComponentOverride(t *testing.T) {
	r := New()

	contract, err := r.RegisterPage("users_index", userIndexSchema(), PageOptions{
		Component: "People/List",
		TypeName:  "PeopleListProps",
	})
	if err != nil {
		t.Fatalf("RegisterPage() error = %v", err)
	}
	if contract.Component != "People/List" {
		t.Errorf("Component = %q, want People/List", contract.Component)
	}
	if contract.TypeName != "PeopleListProps" {
		t.Errorf("TypeName = %q", contract.TypeName)
	}
}

func TestRegisterPage_DuplicatePageID(t *testing.T) {
	r := New()

	if _, err := r.RegisterPage("users_index", userIndexSchema(), PageOptions{}); err != nil {
		t.Fatalf("first RegisterPage() error = %v", err)
	}

	_, err := r.RegisterPage("users_index", userIndexSchema(), PageOptions{})
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("second RegisterPage() error = %v, want RegistrationError", err)
	}
	if regErr.PageID != "users_index" {
		t.Errorf("PageID = %q", regErr.PageID)
	}
}

func TestRegisterPage_DuplicateProp(t *testing.T) {
	r := New()

	schema := []props.PropSpec{
		{Name: "users"},
		{Name: "users"},
	}
	_, err := r.RegisterPage("users_index", schema, PageOptions{})
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("RegisterPage() error = %v, want RegistrationError", err)
	}
}

func TestRegisterPage_AfterFreeze(t *testing.T) {
	r := New()
	r.Freeze()

	if _, err := r.RegisterPage("users_index", userIndexSchema(), PageOptions{}); err == nil {
		t.Error("RegisterPage() after Freeze should fail")
	}
	if err := r.RegisterProvider("", staticProvider("auth", nil), nil, ProviderOptions{}); err == nil {
		t.Error("RegisterProvider() after Freeze should fail")
	}
}

func TestRegisterPage_SchemaCopiedNotAliased(t *testing.T) {
	r := New()
	schema := userIndexSchema()

	contract, err := r.RegisterPage("users_index", schema, PageOptions{})
	if err != nil {
		t.Fatalf("RegisterPage() error = %v", err)
	}

	schema[0].Name = "mutated"
	if contract.Schema[0].Name != "users" {
		t.Error("registered schema aliases the caller's slice")
	}
}

func TestProviders_RegistrationOrder(t *testing.T) {
	r := New()

	for _, name := range []string{"auth", "flash", "notifications"} {
		if err := r.RegisterProvider("", staticProvider(name, nil), []string{name}, ProviderOptions{}); err != nil {
			t.Fatalf("RegisterProvider(%s) error = %v", name, err)
		}
	}

	entries := r.Providers(DefaultScope)
	if len(entries) != 3 {
		t.Fatalf("got %d providers, want 3", len(entries))
	}
	for i, want := range []string{"auth", "flash", "notifications"} {
		if entries[i].Ref.Name() != want {
			t.Errorf("provider[%d] = %q, want %q", i, entries[i].Ref.Name(), want)
		}
	}
}

func TestProviderEntry_Included(t *testing.T) {
	req := func(action string) props.Request {
		return props.Request{Action: action}
	}

	always := ProviderEntry{}
	if !always.Included(req("index")) {
		t.Error("entry with no predicate should always be included")
	}

	only := ProviderEntry{Only: []string{"index", "show"}}
	if !only.Included(req("index")) || only.Included(req("delete")) {
		t.Error("Only predicate misbehaved")
	}

	except := ProviderEntry{Except: []string{"delete"}}
	if !except.Included(req("index")) || except.Included(req("delete")) {
		t.Error("Except predicate misbehaved")
	}

	guarded := ProviderEntry{When: func(r props.Request) bool {
		return r.Values["admin"] == true
	}}
	if guarded.Included(props.Request{Values: map[string]any{"admin": false}}) {
		t.Error("guard should exclude")
	}
	if !guarded.Included(props.Request{Values: map[string]any{"admin": true}}) {
		t.Error("guard should include")
	}
}

func TestScope(t *testing.T) {
	r := New()

	if _, err := r.RegisterPage("users_index", userIndexSchema(), PageOptions{Scope: "admin"}); err != nil {
		t.Fatalf("RegisterPage() error = %v", err)
	}
	if _, err := r.RegisterPage("dashboard", nil, PageOptions{}); err != nil {
		t.Fatalf("RegisterPage() error = %v", err)
	}

	if got := r.Scope("users_index"); got != "admin" {
		t.Errorf("Scope(users_index) = %q, want admin", got)
	}
	if got := r.Scope("dashboard"); got != DefaultScope {
		t.Errorf("Scope(dashboard) = %q, want %q", got, DefaultScope)
	}
	if got := r.Scope("unknown"); got != DefaultScope {
		t.Errorf("Scope(unknown) = %q, want %q", got, DefaultScope)
	}
}

func TestPages_SortedByID(t *testing.T) {
	r := New()
	for _, id := range []string{"users_index", "dashboard", "admin_users_index"} {
		if _, err := r.RegisterPage(id, nil, PageOptions{}); err != nil {
			t.Fatalf("RegisterPage(%s) error = %v", id, err)
		}
	}

	pages := r.Pages()
	want := []string{"admin_users_index", "dashboard", "users_index"}
	for i, id := range want {
		if pages[i].ID != id {
			t.Fatalf("Pages() order = %v", pages)
		}
	}
}
