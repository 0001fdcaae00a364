package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/Eridaras/SistemaMedico/internal/interfaces/http"
	pkgjwt "github.com/Eridaras/SistemaMedico/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testIssuer    = "sistema-medico-test"
)

var testIdentity = pkgjwt.Identity{
	UserID:    "00000000-0000-0000-0000-000000000001",
	CompanyID: "00000000-0000-0000-0000-000000000002",
}

// tokenForRole token Bearer del emisor de pruebas con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	id := testIdentity
	id.Role = role
	tok, err := pkgjwt.Generate(testJWTSecret, testIssuer, id, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

// whoAmI app con una sola ruta que devuelve la identidad cargada por AuthMiddleware.
func whoAmI(roles ...string) *fiber.App {
	app := fiber.New()
	handlers := []fiber.Handler{apphttp.AuthMiddleware(testJWTSecret, testIssuer)}
	if len(roles) > 0 {
		handlers = append(handlers, apphttp.RequireRole(roles...))
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":    apphttp.GetUserID(c),
			"company_id": apphttp.GetCompanyID(c),
			"role":       apphttp.GetRole(c),
		})
	})
	app.Get("/me", handlers...)
	return app
}

func get(t *testing.T, app *fiber.App, authHeader string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

// ── AuthMiddleware ───────────────────────────────────────────────────────────

func TestAuthMiddleware_CargaIdentidadDeFacturacion(t *testing.T) {
	status, body := get(t, whoAmI(), tokenForRole(t, apphttp.RoleFacturador))
	require.Equal(t, http.StatusOK, status)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, testIdentity.UserID, got["user_id"])
	assert.Equal(t, testIdentity.CompanyID, got["company_id"])
	assert.Equal(t, "facturador", got["role"])
}

func TestAuthMiddleware_Rechazos(t *testing.T) {
	otherIssuer, err := pkgjwt.Generate(testJWTSecret, "inventario", pkgjwt.Identity{UserID: "u", Role: pkgjwt.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	expired, err := pkgjwt.Generate(testJWTSecret, testIssuer, pkgjwt.Identity{UserID: "u", Role: pkgjwt.RoleAdmin}, -time.Minute)
	require.NoError(t, err)

	cases := map[string]struct {
		header string
		code   string
	}{
		"sin header":    {"", "MISSING_TOKEN"},
		"esquema Basic": {"Basic dXNlcjpwYXNz", "INVALID_TOKEN"},
		"malformado":    {"Bearer token.invalido.aqui", "INVALID_TOKEN"},
		"otro emisor":   {"Bearer " + otherIssuer, "INVALID_TOKEN"},
		"vencido":       {"Bearer " + expired, "INVALID_TOKEN"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := get(t, whoAmI(), tc.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Contains(t, body, tc.code)
		})
	}
}

// ── RequireRole ──────────────────────────────────────────────────────────────

// Matriz de las políticas que usa RegisterSRIRoutes.
func TestRequireRole_PoliticasDeFacturacion(t *testing.T) {
	policies := map[string][]string{
		"configurar emisor": {apphttp.RoleAdmin},
		"emitir/autorizar":  {apphttp.RoleAdmin, apphttp.RoleFacturador},
		"consultar":         {apphttp.RoleAdmin, apphttp.RoleFacturador, apphttp.RoleAuditor},
	}
	want := map[string]map[string]int{
		"configurar emisor": {"admin": 200, "facturador": 403, "auditor": 403},
		"emitir/autorizar":  {"admin": 200, "facturador": 200, "auditor": 403},
		"consultar":         {"admin": 200, "facturador": 200, "auditor": 200},
	}
	for policy, roles := range policies {
		app := whoAmI(roles...)
		for role, code := range want[policy] {
			t.Run(policy+"/"+role, func(t *testing.T) {
				status, body := get(t, app, tokenForRole(t, role))
				assert.Equal(t, code, status)
				if code == http.StatusForbidden {
					assert.Contains(t, body, "FORBIDDEN")
				}
			})
		}
	}
}

func TestRequireRole_SinAuthMiddleware_FaltaRol(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.RequireRole(apphttp.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	status, body := get(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "MISSING_ROLE")
}
