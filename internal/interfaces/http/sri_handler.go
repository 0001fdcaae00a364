package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/Eridaras/SistemaMedico/internal/application/billing"
	"github.com/Eridaras/SistemaMedico/internal/application/dto"
	infrasri "github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/storage"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// Contratos mínimos de los casos de uso (los implementan los de application/billing).

type sriInvoiceService interface {
	Create(ctx context.Context, in dto.CreateSRIInvoiceRequest) (*dto.SRIInvoiceResponse, error)
	Authorize(ctx context.Context, invoiceID string) (*dto.SRIInvoiceResponse, error)
	Regenerate(ctx context.Context, invoiceID string) (*dto.SRIInvoiceResponse, error)
	Get(ctx context.Context, invoiceID string) (*dto.SRIInvoiceResponse, error)
	List(ctx context.Context, q dto.ListSRIInvoicesQuery) (*dto.SRIInvoiceListResponse, error)
	Statistics(ctx context.Context) (*dto.SRIInvoiceStatsResponse, error)
	DownloadXML(ctx context.Context, invoiceID string) (*billing.XMLDocument, error)
}

type sriConfigService interface {
	GetConfig(ctx context.Context) (*dto.SRIConfigResponse, error)
	UpdateConfig(ctx context.Context, in dto.UpdateSRIConfigRequest) (*dto.SRIConfigResponse, error)
}

type sriStatusService interface {
	PaymentMethods() []pkgsri.PaymentMethod
	Certificate() (*billing.CertificateStatus, error)
	Health(ctx context.Context) (bool, []infrasri.EndpointStatus)
	StorageStats() (storage.Stats, error)
}

// SRIHandler maneja las peticiones HTTP de facturación electrónica SRI (protegido).
type SRIHandler struct {
	invoices sriInvoiceService
	config   sriConfigService
	status   sriStatusService
}

// NewSRIHandler construye el handler.
func NewSRIHandler(invoices sriInvoiceService, config sriConfigService, status sriStatusService) *SRIHandler {
	return &SRIHandler{invoices: invoices, config: config, status: status}
}

// ── Configuración y servicio ──────────────────────────────────────────────────

// GetConfig GET /api/sri/config
func (h *SRIHandler) GetConfig(c *fiber.Ctx) error {
	out, err := h.config.GetConfig(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateConfig PUT /api/sri/config
func (h *SRIHandler) UpdateConfig(c *fiber.Ctx) error {
	var in dto.UpdateSRIConfigRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.config.UpdateConfig(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// PaymentMethods GET /api/sri/payment-methods
func (h *SRIHandler) PaymentMethods(c *fiber.Ctx) error {
	return c.JSON(h.status.PaymentMethods())
}

// Certificate GET /api/sri/certificate
func (h *SRIHandler) Certificate(c *fiber.Ctx) error {
	out, err := h.status.Certificate()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Health GET /api/sri/health. 503 si algún servicio del SRI no responde.
func (h *SRIHandler) Health(c *fiber.Ctx) error {
	healthy, endpoints := h.status.Health(c.UserContext())
	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"disponible": healthy, "servicios": endpoints})
}

// StorageStats GET /api/sri/storage/stats
func (h *SRIHandler) StorageStats(c *fiber.Ctx) error {
	out, err := h.status.StorageStats()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ── Facturas ──────────────────────────────────────────────────────────────────

// CreateInvoice genera el comprobante firmado (queda GENERATED).
// POST /api/sri/invoices
func (h *SRIHandler) CreateInvoice(c *fiber.Ctx) error {
	var in dto.CreateSRIInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.invoices.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Authorize POST /api/sri/invoices/:id/authorize
func (h *SRIHandler) Authorize(c *fiber.Ctx) error {
	out, err := h.invoices.Authorize(c.UserContext(), c.Params("id"))
	return operationResult(c, out, err)
}

// Regenerate POST /api/sri/invoices/:id/regenerate
func (h *SRIHandler) Regenerate(c *fiber.Ctx) error {
	out, err := h.invoices.Regenerate(c.UserContext(), c.Params("id"))
	return operationResult(c, out, err)
}

// ListInvoices GET /api/sri/invoices?estado=&from=&to=&limit=&offset=
func (h *SRIHandler) ListInvoices(c *fiber.Ctx) error {
	var q dto.ListSRIInvoicesQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	out, err := h.invoices.List(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// InvoiceStats GET /api/sri/invoices/stats
func (h *SRIHandler) InvoiceStats(c *fiber.Ctx) error {
	out, err := h.invoices.Statistics(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetInvoice GET /api/sri/invoices/:id
func (h *SRIHandler) GetInvoice(c *fiber.Ctx) error {
	out, err := h.invoices.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// DownloadXML GET /api/sri/invoices/:id/xml
func (h *SRIHandler) DownloadXML(c *fiber.Ctx) error {
	doc, err := h.invoices.DownloadXML(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+doc.FileName+`"`)
	c.Set("X-SRI-Variant", string(doc.Variant))
	return c.Send(doc.Content)
}

// operationResult con error incluye la factura si el caso de uso la devolvió.
func operationResult(c *fiber.Ctx, out *dto.SRIInvoiceResponse, err error) error {
	if err == nil {
		return c.JSON(out)
	}
	status, code := statusFor(err)
	return c.Status(status).JSON(dto.SRIOperationErrorResponse{Code: code, Message: err.Error(), Factura: out})
}
