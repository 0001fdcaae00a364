// Package sri contiene catálogos y validaciones alineados a la Ficha Técnica de
// Comprobantes Electrónicos del SRI (Ecuador), esquema offline.
package sri

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Tabla 3 - Tipos de comprobante
// =============================================================================

const (
	DocumentTypeInvoice = "01" // Factura
)

// VersionInvoice versión del esquema XSD de factura usada por el generador.
const VersionInvoice = "2.1.0"

// =============================================================================
// Tabla 4 - Ambientes y Tabla 2 - Tipo de emisión
// =============================================================================

const (
	EnvironmentTest       = "1" // Pruebas (celcer.sri.gob.ec)
	EnvironmentProduction = "2" // Producción (cel.sri.gob.ec)

	EmissionTypeNormal = "1"
)

// ValidEnvironments ambientes aceptados por los servicios web del SRI.
var ValidEnvironments = map[string]bool{
	EnvironmentTest:       true,
	EnvironmentProduction: true,
}

// EnvironmentName descripción legible del ambiente.
func EnvironmentName(env string) string {
	switch env {
	case EnvironmentTest:
		return "PRUEBAS"
	case EnvironmentProduction:
		return "PRODUCCION"
	default:
		return "DESCONOCIDO"
	}
}

// =============================================================================
// Tabla 6 - Tipo de identificación del comprador
// =============================================================================

const (
	IdentificationTypeRUC           = "04"
	IdentificationTypeCedula        = "05"
	IdentificationTypePassport      = "06"
	IdentificationTypeFinalConsumer = "07"
	IdentificationTypeForeign       = "08"

	// FinalConsumerID identificación fija del consumidor final.
	FinalConsumerID = "9999999999999"
)

// ValidIdentificationTypes tipos de identificación aceptados para el comprador.
var ValidIdentificationTypes = map[string]string{
	IdentificationTypeRUC:           "RUC",
	IdentificationTypeCedula:        "CEDULA",
	IdentificationTypePassport:      "PASAPORTE",
	IdentificationTypeFinalConsumer: "VENTA A CONSUMIDOR FINAL",
	IdentificationTypeForeign:       "IDENTIFICACION DEL EXTERIOR",
}

// =============================================================================
// Tabla 16 - Códigos de impuesto
// =============================================================================

const (
	TaxCodeIVA    = "2"
	TaxCodeICE    = "3"
	TaxCodeIRBPNR = "5"
)

// =============================================================================
// Tabla 17 - Tarifas del IVA (codigoPorcentaje)
// =============================================================================

const (
	IVACode0           = "0"  // 0%
	IVACode12          = "2"  // 12%
	IVACode14          = "3"  // 14%
	IVACode15          = "4"  // 15%
	IVACode5           = "5"  // 5%
	IVACodeNoObjeto    = "6"  // No objeto de impuesto
	IVACodeExento      = "7"  // Exento de IVA
	IVACodeDiferencial = "8"  // IVA diferenciado
	IVACode13          = "10" // 13%
)

// ivaRates tarifa asociada a cada codigoPorcentaje de IVA.
var ivaRates = map[string]decimal.Decimal{
	IVACode0:           decimal.Zero,
	IVACode12:          decimal.NewFromInt(12),
	IVACode14:          decimal.NewFromInt(14),
	IVACode15:          decimal.NewFromInt(15),
	IVACode5:           decimal.NewFromInt(5),
	IVACodeNoObjeto:    decimal.Zero,
	IVACodeExento:      decimal.Zero,
	IVACodeDiferencial: decimal.Zero,
	IVACode13:          decimal.NewFromInt(13),
}

// IVARate devuelve la tarifa del codigoPorcentaje.
func IVARate(code string) (decimal.Decimal, bool) {
	r, ok := ivaRates[code]
	return r, ok
}

// IVACodeForRate devuelve el codigoPorcentaje vigente para una tarifa.
// La tarifa 0 se resuelve como "0" (no como exento ni no objeto).
func IVACodeForRate(rate decimal.Decimal) (string, error) {
	switch {
	case rate.IsZero():
		return IVACode0, nil
	case rate.Equal(decimal.NewFromInt(15)):
		return IVACode15, nil
	case rate.Equal(decimal.NewFromInt(12)):
		return IVACode12, nil
	case rate.Equal(decimal.NewFromInt(14)):
		return IVACode14, nil
	case rate.Equal(decimal.NewFromInt(13)):
		return IVACode13, nil
	case rate.Equal(decimal.NewFromInt(5)):
		return IVACode5, nil
	}
	return "", fmt.Errorf("sri: tarifa de IVA %s%% no reconocida", rate.String())
}

// ResolveIVA completa el par (codigoPorcentaje, tarifa). Si ambos vienen
// informados deben ser coherentes con la tabla 17.
func ResolveIVA(code string, rate decimal.Decimal) (string, decimal.Decimal, error) {
	if code == "" {
		c, err := IVACodeForRate(rate)
		if err != nil {
			return "", decimal.Zero, err
		}
		return c, rate, nil
	}
	expected, ok := IVARate(code)
	if !ok {
		return "", decimal.Zero, fmt.Errorf("sri: codigoPorcentaje de IVA %q no existe", code)
	}
	if !rate.IsZero() && !rate.Equal(expected) {
		return "", decimal.Zero, fmt.Errorf("sri: codigoPorcentaje %s corresponde a %s%%, se recibió %s%%", code, expected.String(), rate.String())
	}
	return code, expected, nil
}

// =============================================================================
// Tabla 24 - Formas de pago
// =============================================================================

const (
	PaymentCash           = "01" // Sin utilización del sistema financiero
	PaymentDebtOffset     = "15" // Compensación de deudas
	PaymentDebitCard      = "16" // Tarjeta de débito
	PaymentElectronicCash = "17" // Dinero electrónico
	PaymentPrepaidCard    = "18" // Tarjeta prepago
	PaymentCreditCard     = "19" // Tarjeta de crédito
	PaymentFinancialOther = "20" // Otros con utilización del sistema financiero
	PaymentTitleEndorse   = "21" // Endoso de títulos
)

// PaymentMethods descripción oficial de cada forma de pago.
var PaymentMethods = map[string]string{
	PaymentCash:           "SIN UTILIZACION DEL SISTEMA FINANCIERO",
	PaymentDebtOffset:     "COMPENSACION DE DEUDAS",
	PaymentDebitCard:      "TARJETA DE DEBITO",
	PaymentElectronicCash: "DINERO ELECTRONICO",
	PaymentPrepaidCard:    "TARJETA PREPAGO",
	PaymentCreditCard:     "TARJETA DE CREDITO",
	PaymentFinancialOther: "OTROS CON UTILIZACION DEL SISTEMA FINANCIERO",
	PaymentTitleEndorse:   "ENDOSO DE TITULOS",
}

// PaymentMethod par código/descripción para listados.
type PaymentMethod struct {
	Code        string `json:"codigo"`
	Description string `json:"descripcion"`
}

// ListPaymentMethods devuelve las formas de pago ordenadas por código.
func ListPaymentMethods() []PaymentMethod {
	out := make([]PaymentMethod, 0, len(PaymentMethods))
	for code, desc := range PaymentMethods {
		out = append(out, PaymentMethod{Code: code, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// =============================================================================
// Moneda y unidades de tiempo del plazo de pago
// =============================================================================

const (
	CurrencyDollar = "DOLAR"

	TimeUnitDays   = "dias"
	TimeUnitMonths = "meses"
)

// =============================================================================
// Mensajes del SRI con tratamiento especial
// =============================================================================

// MessageAccessKeyRegistered identificador del mensaje "CLAVE ACCESO REGISTRADA":
// la recepción devuelve DEVUELTA cuando la clave ya fue recibida antes.
const MessageAccessKeyRegistered = "43"
