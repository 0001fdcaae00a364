package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eridaras/SistemaMedico/internal/application/dto"
	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/storage"
)

// InvoiceLifecycle transiciones del comprobante (implementado por *SRIOrchestrator).
type InvoiceLifecycle interface {
	Generate(ctx context.Context, draft *entity.InvoiceDraft) (*entity.Invoice, error)
	Authorize(ctx context.Context, invoiceID string) (*entity.Invoice, error)
	Regenerate(ctx context.Context, invoiceID string) (*entity.Invoice, error)
}

// XMLDocument comprobante listo para descarga.
type XMLDocument struct {
	FileName string
	Content  []byte
	Variant  storage.Variant
}

// SRIInvoiceUseCase casos de uso HTTP de facturación electrónica: emisión,
// autorización, regeneración y consultas.
type SRIInvoiceUseCase struct {
	lifecycle InvoiceLifecycle
	invoices  repository.InvoiceRepository
	logs      repository.AuthorizationLogRepository
	archive   Archive
}

// NewSRIInvoiceUseCase construye el caso de uso.
func NewSRIInvoiceUseCase(
	lifecycle InvoiceLifecycle,
	invoices repository.InvoiceRepository,
	logs repository.AuthorizationLogRepository,
	archive Archive,
) *SRIInvoiceUseCase {
	return &SRIInvoiceUseCase{lifecycle: lifecycle, invoices: invoices, logs: logs, archive: archive}
}

// Create valida el borrador y genera el comprobante firmado (queda GENERATED).
func (uc *SRIInvoiceUseCase) Create(ctx context.Context, in dto.CreateSRIInvoiceRequest) (*dto.SRIInvoiceResponse, error) {
	draft, err := draftFromRequest(in)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha_emision debe tener formato YYYY-MM-DD", err)
	}
	inv, err := uc.lifecycle.Generate(ctx, draft)
	if err != nil {
		return nil, err
	}
	return uc.withLog(ctx, inv)
}

// Authorize envía y/o consulta la autorización. Con error de SRI devuelve
// también la factura para que el cliente vea el estado resultante.
func (uc *SRIInvoiceUseCase) Authorize(ctx context.Context, invoiceID string) (*dto.SRIInvoiceResponse, error) {
	inv, err := uc.lifecycle.Authorize(ctx, invoiceID)
	return uc.respond(ctx, inv, err)
}

// Regenerate emite un nuevo comprobante desde ERROR o NOT_AUTHORIZED.
func (uc *SRIInvoiceUseCase) Regenerate(ctx context.Context, invoiceID string) (*dto.SRIInvoiceResponse, error) {
	inv, err := uc.lifecycle.Regenerate(ctx, invoiceID)
	return uc.respond(ctx, inv, err)
}

// Get factura completa con líneas, pagos, campos adicionales y bitácora.
func (uc *SRIInvoiceUseCase) Get(ctx context.Context, invoiceID string) (*dto.SRIInvoiceResponse, error) {
	inv, err := loadInvoice(ctx, uc.invoices, invoiceID)
	if err != nil {
		return nil, err
	}
	return uc.withLog(ctx, inv)
}

// List listado paginado por estado y rango de fecha de emisión.
func (uc *SRIInvoiceUseCase) List(ctx context.Context, q dto.ListSRIInvoicesQuery) (*dto.SRIInvoiceListResponse, error) {
	f, err := filterFromQuery(q)
	if err != nil {
		return nil, err
	}
	list, err := uc.invoices.List(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := uc.invoices.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &dto.SRIInvoiceListResponse{
		Items: make([]dto.SRIInvoiceResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: f.Limit, Offset: f.Offset, Total: total},
	}
	for _, inv := range list {
		out.Items = append(out.Items, *toInvoiceResponse(inv, nil))
	}
	return out, nil
}

// Statistics conteos por estado y monto autorizado.
func (uc *SRIInvoiceUseCase) Statistics(ctx context.Context) (*dto.SRIInvoiceStatsResponse, error) {
	s, err := uc.invoices.Statistics(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SRIInvoiceStatsResponse{
		Total:           s.Total,
		Autorizadas:     s.Authorized,
		Pendientes:      s.Pending,
		NoAutorizadas:   s.NotAuthorized,
		ConError:        s.Errors,
		MontoAutorizado: s.AuthorizedAmount,
	}, nil
}

// DownloadXML devuelve el comprobante archivado como AUTORIZADO, o el firmado
// guardado en base si no existe en el archivo. En ambos casos el checksum
// debe coincidir con el registrado al firmar.
func (uc *SRIInvoiceUseCase) DownloadXML(ctx context.Context, invoiceID string) (*XMLDocument, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: id de factura requerido", domain.ErrInvalidInput)
	}
	inv, err := uc.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}

	doc := &XMLDocument{FileName: inv.AccessKey + ".xml", Variant: storage.VariantPending}
	if inv.IsAuthorized() {
		content, err := uc.archive.Get(inv.Number, storage.VariantAuthorized, inv.IssueDate)
		switch {
		case err == nil:
			doc.Content, doc.Variant = content, storage.VariantAuthorized
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}
	if doc.Content == nil {
		if inv.XMLSigned == "" {
			return nil, fmt.Errorf("%w: la factura %s no tiene XML", domain.ErrNotFound, inv.Number)
		}
		doc.Content = []byte(inv.XMLSigned)
	}
	if sum := storage.Checksum(doc.Content); inv.SignedChecksum != "" && sum != inv.SignedChecksum {
		return nil, fmt.Errorf("%w: %s (esperado %s, obtenido %s)", domain.ErrChecksumMismatch, inv.Number, inv.SignedChecksum, sum)
	}
	return doc, nil
}

func (uc *SRIInvoiceUseCase) respond(ctx context.Context, inv *entity.Invoice, err error) (*dto.SRIInvoiceResponse, error) {
	if inv == nil {
		return nil, err
	}
	out, logErr := uc.withLog(ctx, inv)
	if logErr != nil {
		out = toInvoiceResponse(inv, nil)
	}
	return out, err
}

func (uc *SRIInvoiceUseCase) withLog(ctx context.Context, inv *entity.Invoice) (*dto.SRIInvoiceResponse, error) {
	log, err := uc.logs.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, log), nil
}

func filterFromQuery(q dto.ListSRIInvoicesQuery) (repository.InvoiceFilter, error) {
	page := dto.PageRequest{Limit: q.Limit, Offset: q.Offset}
	page.DefaultPage()
	f := repository.InvoiceFilter{Limit: page.Limit, Offset: page.Offset}
	if q.Estado != "" {
		st := entity.LifecycleState(strings.ToUpper(strings.TrimSpace(q.Estado)))
		if !st.Valid() {
			return f, fmt.Errorf("%w: estado %q no existe", domain.ErrInvalidInput, q.Estado)
		}
		f.SRIStatus = st
	}
	var err error
	if f.From, err = parseDay(q.From); err != nil {
		return f, err
	}
	if f.To, err = parseDay(q.To); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidInput)
	}
	return f, nil
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(issueDateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha %q debe tener formato YYYY-MM-DD", domain.ErrInvalidInput, s)
	}
	return &d, nil
}
