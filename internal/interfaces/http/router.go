package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Eridaras/SistemaMedico/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	InvoiceUC *billing.SRIInvoiceUseCase
	ConfigUC  *billing.SRIConfigUseCase
	ServiceUC *billing.SRIServiceUseCase
	JWTSecret string
	JWTIssuer string // vacío = no se valida el emisor del token
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	RegisterSRIRoutes(app, NewSRIHandler(deps.InvoiceUC, deps.ConfigUC, deps.ServiceUC), deps.JWTSecret, deps.JWTIssuer)
}

// RegisterSRIRoutes rutas de facturación electrónica bajo /api/sri (Bearer Token).
func RegisterSRIRoutes(app *fiber.App, h *SRIHandler, jwtSecret, jwtIssuer string) {
	sri := app.Group("/api/sri", AuthMiddleware(jwtSecret, jwtIssuer))

	anyRole := RequireRole(RoleAdmin, RoleFacturador, RoleAuditor)
	issuers := RequireRole(RoleAdmin, RoleFacturador)

	// Configuración del emisor
	sri.Get("/config", anyRole, h.GetConfig)
	sri.Put("/config", RequireRole(RoleAdmin), h.UpdateConfig)

	// Catálogos y diagnóstico
	sri.Get("/payment-methods", anyRole, h.PaymentMethods)
	sri.Get("/certificate", anyRole, h.Certificate)
	sri.Get("/health", anyRole, h.Health)
	sri.Get("/storage/stats", anyRole, h.StorageStats)

	// Facturas (stats antes de :id)
	invoices := sri.Group("/invoices")
	invoices.Post("/", issuers, h.CreateInvoice)
	invoices.Get("/", anyRole, h.ListInvoices)
	invoices.Get("/stats", anyRole, h.InvoiceStats)
	invoices.Get("/:id", anyRole, h.GetInvoice)
	invoices.Get("/:id/xml", anyRole, h.DownloadXML)
	invoices.Post("/:id/authorize", issuers, h.Authorize)
	invoices.Post("/:id/regenerate", issuers, h.Regenerate)
}
