package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
)

// InvoiceFilter filtros del listado de facturas electrónicas.
type InvoiceFilter struct {
	SRIStatus entity.LifecycleState // vacío = todos
	From      *time.Time            // fecha de emisión desde (inclusive)
	To        *time.Time            // fecha de emisión hasta (inclusive)
	Limit     int
	Offset    int
}

// InvoiceStatistics conteos por estado para el tablero de facturación.
type InvoiceStatistics struct {
	Total            int
	Authorized       int
	Pending          int // GENERATED, SUBMITTED o RECEIVED
	NotAuthorized    int
	Errors           int
	AuthorizedAmount decimal.Decimal
}

// InvoiceRepository define el puerto de persistencia para facturas electrónicas y sus líneas.
// Las facturas nunca se eliminan.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	CreateItems(ctx context.Context, invoiceID string, items []*entity.InvoiceItem) error
	CreatePayments(ctx context.Context, invoiceID string, payments []*entity.InvoicePayment) error
	CreateAdditionalFields(ctx context.Context, invoiceID string, fields []*entity.AdditionalField) error

	// UpdateElectronicData persiste número, clave, versión, estados, mensajes y XML
	// solo si estado_sri sigue siendo from. Si otro proceso ya cambió el estado
	// devuelve domain.ErrInvalidTransition y no escribe nada.
	UpdateElectronicData(ctx context.Context, inv *entity.Invoice, from entity.LifecycleState) error

	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error)
	GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error)
	GetPayments(ctx context.Context, invoiceID string) ([]*entity.InvoicePayment, error)
	GetAdditionalFields(ctx context.Context, invoiceID string) ([]*entity.AdditionalField, error)

	List(ctx context.Context, f InvoiceFilter) ([]*entity.Invoice, error)
	Count(ctx context.Context, f InvoiceFilter) (int, error)
	Statistics(ctx context.Context) (*InvoiceStatistics, error)
}
