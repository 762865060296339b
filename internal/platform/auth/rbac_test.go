package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(c echo.Context, roles ...string) {
	ctx := context.WithValue(c.Request().Context(), UserRolesKey, roles)
	c.SetRequest(c.Request().WithContext(ctx))
}

func TestRequireRole_Allows(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	contextWithRoles(c, RolePharmacist)

	h := RequireRole(RolePharmacist, RoleDoctor)(okHandler)
	if err := h(c); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestRequireRole_Denies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	contextWithRoles(c, RoleViewer)

	h := RequireRole(RolePharmacist)(okHandler)
	err := h(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}

func TestRequireRole_AdminOverride(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	contextWithRoles(c, RoleAdmin)

	h := RequireRole(RoleTechnician)(okHandler)
	if err := h(c); err != nil {
		t.Fatalf("admin should pass every role check, got %v", err)
	}
}

func TestRequireRole_NoIdentity(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireRole(RoleViewer)(okHandler)
	err := h(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without identity, got %v", err)
	}
}

func TestIsPublicPath(t *testing.T) {
	for _, path := range []string{"/health", "/health/db", "/metrics", "/version"} {
		if !IsPublicPath(path) {
			t.Errorf("IsPublicPath(%s) = false, want true", path)
		}
	}
	if IsPublicPath("/api/v1/patients") {
		t.Error("IsPublicPath(/api/v1/patients) = true, want false")
	}
}
