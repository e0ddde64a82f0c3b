package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nordbeam/nb-inertia-sub000/core/props"
	"github.com/nordbeam/nb-inertia-sub000/core/registry"
	"github.com/nordbeam/nb-inertia-sub000/core/resolve"
	"github.com/nordbeam/nb-inertia-sub000/web"
)

// registerSite declares the demo site's page contracts and shared
// providers. Real applications supply their own RegisterFunc; this one
// exists so the binary runs end to end out of the box.
func registerSite(reg *registry.Registry) error {
	if _, err := reg.RegisterPage("dashboard", []props.PropSpec{
		{Name: "greeting", Type: "string"},
		{Name: "stats", Type: "map", Once: &props.OnceSpec{Until: time.Hour}},
		{Name: "recent_activity", Type: "[]Activity", DeferGroup: "activity"},
	}, registry.PageOptions{}); err != nil {
		return err
	}

	if _, err := reg.RegisterPage("users_index", []props.PropSpec{
		{Name: "users", Type: "[]User"},
		{Name: "total_count", Type: "int"},
		{Name: "filters", Type: "map", Optional: true, MergeMode: props.MergeDeep},
		{Name: "permissions", Type: "[]string", Lazy: true},
	}, registry.PageOptions{}); err != nil {
		return err
	}

	if _, err := reg.RegisterPage("users_show", []props.PropSpec{
		{Name: "user", Type: "User"},
		{Name: "audit_log", Type: "[]Entry", Partial: true},
	}, registry.PageOptions{}); err != nil {
		return err
	}

	if err := reg.RegisterProvider("", props.ProviderFunc{
		ProviderName: "auth",
		Build: func(ctx context.Context, req props.Request) (map[string]any, error) {
			return map[string]any{
				"auth": map[string]any{
					"user": map[string]any{"id": "u_1", "name": "Ada"},
				},
			}, nil
		},
	}, []string{"auth"}, registry.ProviderOptions{}); err != nil {
		return err
	}

	if err := reg.RegisterProvider("", props.ProviderFunc{
		ProviderName: "flash",
		Build: func(ctx context.Context, req props.Request) (map[string]any, error) {
			return map[string]any{"flash": map[string]any{}}, nil
		},
	}, []string{"flash"}, registry.ProviderOptions{}); err != nil {
		return err
	}

	// Notification counts are noise on destructive actions.
	return reg.RegisterProvider("", props.ProviderFunc{
		ProviderName: "notifications",
		Build: func(ctx context.Context, req props.Request) (map[string]any, error) {
			return map[string]any{"notifications": map[string]any{"unread": 2}}, nil
		},
	}, []string{"notifications"}, registry.ProviderOptions{Except: []string{"delete"}})
}

// siteRoutes wires the demo pages onto the router.
func siteRoutes(r chi.Router, h *web.Handler) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		h.Render(w, req, "dashboard", resolve.Checked(
			props.Prop{Name: "greeting", Value: "Welcome back"},
			props.Prop{Name: "stats", Value: func() (any, error) {
				return map[string]any{"projects": 12, "open_issues": 4}, nil
			}},
			props.Prop{Name: "recent_activity", Value: func() (any, error) {
				return []map[string]any{{"event": "deploy", "at": time.Now().UTC()}}, nil
			}},
		), web.RenderOptions{})
	})

	r.Get("/users", func(w http.ResponseWriter, req *http.Request) {
		h.Render(w, req, "users_index", resolve.Checked(
			props.Prop{Name: "users", Value: []map[string]any{
				{"id": "u_1", "name": "Ada"},
				{"id": "u_2", "name": "Grace"},
			}},
			props.Prop{Name: "total_count", Value: 2},
			props.Prop{Name: "permissions", Value: func() (any, error) {
				return []string{"users.read"}, nil
			}},
		), web.RenderOptions{})
	})

	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		h.Render(w, req, "users_show", resolve.Checked(
			props.Prop{Name: "user", Value: map[string]any{"id": id, "name": "Ada"}},
			props.Prop{Name: "audit_log", Value: func() (any, error) {
				return []map[string]any{{"action": "login", "user_id": id}}, nil
			}},
		), web.RenderOptions{})
	})
}
