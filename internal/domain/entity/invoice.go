package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estado visible de la factura para el resto del sistema.
const (
	InvoiceStatusDraft  = "DRAFT"  // Aún sin autorización del SRI
	InvoiceStatusIssued = "ISSUED" // Autorizada: documento legal definitivo
)

// Invoice representa la factura electrónica persistida (tabla electronic_invoices).
// Se crea al generar el comprobante, solo cambia por transiciones de LifecycleState
// y nunca se elimina (retención legal).
type Invoice struct {
	ID              string
	Number          string // estab-pto-secuencial (ej: 001-001-000000042)
	Sequence        int64
	AccessKey       string // Clave de acceso de 49 dígitos
	DocumentVersion int    // 1 en la primera generación; +1 por cada regeneración
	IssueDate       time.Time
	Environment     string

	BuyerIDType  string
	BuyerID      string
	BuyerName    string
	BuyerAddress string
	BuyerEmail   string
	BuyerPhone   string

	TotalWithoutTax decimal.Decimal // Suma de bases imponibles
	TotalDiscount   decimal.Decimal
	TotalTax        decimal.Decimal
	Total           decimal.Decimal // importeTotal

	Status              string         // InvoiceStatusDraft | InvoiceStatusIssued
	SRIStatus           LifecycleState // estado_sri
	SRIMessage          string         // mensaje_sri (último mensaje del SRI)
	AuthorizationNumber string
	AuthorizationDate   *time.Time

	XMLUnsigned    string
	XMLSigned      string // Contenido enviado al SRI (firmado, o sin firma en modo unsigned)
	XMLAuthorized  string // Copia devuelta por el SRI en la autorización
	Signed         bool
	SignedChecksum string // SHA-256 hex de XMLSigned

	CreatedAt time.Time
	UpdatedAt time.Time

	Items            []*InvoiceItem
	Payments         []*InvoicePayment
	AdditionalFields []*AdditionalField
}

// IsAuthorized indica si la factura llegó al estado terminal AUTORIZADO.
func (i *Invoice) IsAuthorized() bool {
	return i.SRIStatus == StateAuthorized
}
