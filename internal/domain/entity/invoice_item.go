package entity

import "github.com/shopspring/decimal"

// InvoiceItem representa una línea de detalle de la factura electrónica.
type InvoiceItem struct {
	ID                string
	InvoiceID         string
	LineNumber        int
	MainCode          string // codigoPrincipal
	AuxiliaryCode     string // codigoAuxiliar (opcional)
	Description       string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	Discount          decimal.Decimal
	TaxCode           string          // "2" = IVA
	TaxPercentageCode string          // codigoPorcentaje (ej: "4" = 15%)
	TaxRate           decimal.Decimal // tarifa en porcentaje (ej: 15)
	Subtotal          decimal.Decimal // precioTotalSinImpuesto = cantidad × precio − descuento
	TaxAmount         decimal.Decimal // Subtotal × tarifa / 100
}

// InvoicePayment representa una forma de pago de la factura (bloque <pagos>).
type InvoicePayment struct {
	ID        string
	InvoiceID string
	Method    string // código de la tabla 24 (ej: "01")
	Total     decimal.Decimal
	Term      *int   // plazo (opcional)
	TimeUnit  string // dias | meses (opcional)
}

// AdditionalField campo libre del bloque <infoAdicional>.
type AdditionalField struct {
	ID        string
	InvoiceID string
	Name      string
	Value     string
}
