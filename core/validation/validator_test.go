package validation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nordbeam/nb-inertia-sub000/core/props"
	"github.com/nordbeam/nb-inertia-sub000/core/registry"
)

func usersContract() *props.PageContract {
	return &props.PageContract{
		ID: "users_index",
		Schema: []props.PropSpec{
			{Name: "users"},
			{Name: "total_count"},
			{Name: "filters", Optional: true},
		},
	}
}

func provider(name string, produces ...string) registry.ProviderEntry {
	return registry.ProviderEntry{
		Ref: props.ProviderFunc{
			ProviderName: name,
			Build: func(ctx context.Context, req props.Request) (map[string]any, error) {
				return nil, nil
			},
		},
		Produce: produces,
	}
}

func TestValidateCallSite_OK(t *testing.T) {
	c := usersContract()

	if err := ValidateCallSite(c, []string{"users", "total_count"}); err != nil {
		t.Errorf("ValidateCallSite() error = %v", err)
	}
	if err := ValidateCallSite(c, []string{"users", "total_count", "filters"}); err != nil {
		t.Errorf("ValidateCallSite() with optional error = %v", err)
	}
}

func TestValidateCallSite_Missing(t *testing.T) {
	c := usersContract()

	err := ValidateCallSite(c, []string{"users"})
	var missing *MissingPropsError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want MissingPropsError", err)
	}
	if missing.PageID != "users_index" {
		t.Errorf("PageID = %q", missing.PageID)
	}
	if !reflect.DeepEqual(missing.Props, []string{"total_count"}) {
		t.Errorf("Props = %v, want [total_count]", missing.Props)
	}
}

func TestValidateCallSite_Undeclared(t *testing.T) {
	c := &props.PageContract{
		ID:     "users_show",
		Schema: []props.PropSpec{{Name: "title"}},
	}

	err := ValidateCallSite(c, []string{"title", "extra"})
	var undeclared *UndeclaredPropsError
	if !errors.As(err, &undeclared) {
		t.Fatalf("error = %v, want UndeclaredPropsError", err)
	}
	if !reflect.DeepEqual(undeclared.Props, []string{"extra"}) {
		t.Errorf("Props = %v, want exactly [extra]", undeclared.Props)
	}
}

func TestValidateCallSite_MissingReportedBeforeUndeclared(t *testing.T) {
	c := usersContract()

	err := ValidateCallSite(c, []string{"bogus"})
	var missing *MissingPropsError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want MissingPropsError first", err)
	}
}

func TestValidateCallSite_FailsIffRequiredNotSubset(t *testing.T) {
	c := usersContract()

	// Required ⊆ supplied: pass. Required ⊄ supplied: fail.
	cases := []struct {
		supplied []string
		wantErr  bool
	}{
		{[]string{"users", "total_count"}, false},
		{[]string{"total_count", "users", "filters"}, false},
		{[]string{"users", "filters"}, true},
		{[]string{}, true},
	}
	for _, tt := range cases {
		err := ValidateCallSite(c, tt.supplied)
		if (err != nil) != tt.wantErr {
			t.Errorf("supplied %v: error = %v, wantErr %v", tt.supplied, err, tt.wantErr)
		}
	}
}

func TestValidateScope_NoCollision(t *testing.T) {
	c := usersContract()

	err := ValidateScope(c, "default", []registry.ProviderEntry{
		provider("auth", "auth"),
		provider("flash", "flash"),
	})
	if err != nil {
		t.Errorf("ValidateScope() error = %v", err)
	}
}

func TestValidateScope_Collision(t *testing.T) {
	c := usersContract()

	err := ValidateScope(c, "default", []registry.ProviderEntry{
		provider("auth", "auth"),
		provider("listing", "users", "page"),
	})
	var collision *CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("error = %v, want CollisionError", err)
	}
	if collision.Provider != "listing" {
		t.Errorf("Provider = %q, want listing", collision.Provider)
	}
	if !reflect.DeepEqual(collision.Props, []string{"users"}) {
		t.Errorf("Props = %v, want [users]", collision.Props)
	}
}

func TestValidateRegistry_DetectsCollisionBeforeAnyRequest(t *testing.T) {
	reg := registry.New()

	if _, err := reg.RegisterPage("users_index", []props.PropSpec{{Name: "users"}}, registry.PageOptions{}); err != nil {
		t.Fatalf("RegisterPage() error = %v", err)
	}
	p := provider("listing", "users")
	if err := reg.RegisterProvider("", p.Ref, p.Produce, registry.ProviderOptions{}); err != nil {
		t.Fatalf("RegisterProvider() error = %v", err)
	}
	reg.Freeze()

	errs := ValidateRegistry(reg)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	var collision *CollisionError
	if !errors.As(errs[0], &collision) {
		t.Errorf("error = %v, want CollisionError", errs[0])
	}
}
