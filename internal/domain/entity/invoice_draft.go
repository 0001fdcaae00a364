package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceDraft datos de entrada para generar el comprobante. Una vez generado
// el documento, el borrador no se modifica.
type InvoiceDraft struct {
	IssueDate time.Time // vacío = fecha actual

	BuyerIDType  string // 04 RUC, 05 cédula, 06 pasaporte, 07 consumidor final, 08 exterior
	BuyerID      string
	BuyerName    string
	BuyerAddress string
	BuyerEmail   string
	BuyerPhone   string

	Items            []DraftItem
	Payments         []DraftPayment
	AdditionalFields []AdditionalField
}

// DraftItem línea de detalle del borrador.
type DraftItem struct {
	MainCode          string
	AuxiliaryCode     string
	Description       string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	Discount          decimal.Decimal
	TaxPercentageCode string          // opcional si TaxRate viene informado
	TaxRate           decimal.Decimal // porcentaje (ej: 15)
}

// DraftPayment forma de pago del borrador.
type DraftPayment struct {
	Method   string
	Total    decimal.Decimal
	Term     *int
	TimeUnit string
}
