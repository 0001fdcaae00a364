package sri

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// Límites de la ficha técnica para campos de texto.
const (
	maxMainCode        = 25
	maxDescription     = 300
	maxBuyerName       = 300
	maxAdditionalField = 15
	maxAdditionalValue = 300
)

// ValidateProfile valida los campos del emisor antes de cualquier interacción con el SRI.
func ValidateProfile(p *entity.IssuerProfile) error {
	if p == nil {
		return domain.ErrNoActiveConfig
	}
	var errs []error
	if err := pkgsri.ValidateRUC(p.RUC); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(p.LegalName) == "" {
		errs = append(errs, errors.New("razón social requerida"))
	}
	if strings.TrimSpace(p.MainAddress) == "" {
		errs = append(errs, errors.New("dirección matriz requerida"))
	}
	if len(p.Establishment) != 3 || !isDigits(p.Establishment) {
		errs = append(errs, fmt.Errorf("establecimiento debe tener 3 dígitos (%q)", p.Establishment))
	}
	if len(p.PointOfSale) != 3 || !isDigits(p.PointOfSale) {
		errs = append(errs, fmt.Errorf("punto de emisión debe tener 3 dígitos (%q)", p.PointOfSale))
	}
	if !pkgsri.ValidEnvironments[p.Environment] {
		errs = append(errs, fmt.Errorf("ambiente %q no válido (1 = pruebas, 2 = producción)", p.Environment))
	}
	if p.EmissionType != pkgsri.EmissionTypeNormal {
		errs = append(errs, fmt.Errorf("tipo de emisión %q no soportado", p.EmissionType))
	}
	if len(p.NumericCode) != lenNumericCode || !isDigits(p.NumericCode) {
		errs = append(errs, fmt.Errorf("código numérico debe tener 8 dígitos (%q)", p.NumericCode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// ValidateDraft valida comprador, líneas, pagos y campos adicionales del borrador.
// La coherencia de la suma de pagos se comprueba en BuildPayments, ya con el total calculado.
func ValidateDraft(d *entity.InvoiceDraft) error {
	if d == nil {
		return fmt.Errorf("%w: borrador nulo", domain.ErrInvalidInput)
	}
	var errs []error

	if err := pkgsri.ValidateBuyerIdentification(d.BuyerIDType, d.BuyerID); err != nil {
		errs = append(errs, err)
	}
	if name := strings.TrimSpace(d.BuyerName); name == "" || utf8.RuneCountInString(name) > maxBuyerName {
		errs = append(errs, errors.New("razón social del comprador requerida (máx. 300 caracteres)"))
	}

	if len(d.Items) == 0 {
		errs = append(errs, errors.New("la factura debe tener al menos un detalle"))
	}
	for i, it := range d.Items {
		line := i + 1
		if code := strings.TrimSpace(it.MainCode); code == "" || utf8.RuneCountInString(code) > maxMainCode {
			errs = append(errs, fmt.Errorf("línea %d: código principal requerido (máx. 25 caracteres)", line))
		}
		if desc := strings.TrimSpace(it.Description); desc == "" || utf8.RuneCountInString(desc) > maxDescription {
			errs = append(errs, fmt.Errorf("línea %d: descripción requerida (máx. 300 caracteres)", line))
		}
		if !it.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: la cantidad debe ser mayor a cero", line))
		}
		if it.UnitPrice.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: el precio unitario no puede ser negativo", line))
		}
		if it.Discount.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: el descuento no puede ser negativo", line))
		}
		if it.Discount.GreaterThan(it.Quantity.Mul(it.UnitPrice)) {
			errs = append(errs, fmt.Errorf("línea %d: el descuento supera el valor de la línea", line))
		}
		if _, _, err := pkgsri.ResolveIVA(it.TaxPercentageCode, it.TaxRate); err != nil {
			errs = append(errs, fmt.Errorf("línea %d: %w", line, err))
		}
	}

	for i, p := range d.Payments {
		if _, ok := pkgsri.PaymentMethods[p.Method]; !ok {
			errs = append(errs, fmt.Errorf("pago %d: forma de pago %q no existe", i+1, p.Method))
		}
		if p.Total.IsNegative() {
			errs = append(errs, fmt.Errorf("pago %d: total negativo", i+1))
		}
		if p.TimeUnit != "" && p.TimeUnit != pkgsri.TimeUnitDays && p.TimeUnit != pkgsri.TimeUnitMonths {
			errs = append(errs, fmt.Errorf("pago %d: unidad de tiempo %q no válida", i+1, p.TimeUnit))
		}
	}

	if len(d.AdditionalFields) > maxAdditionalField {
		errs = append(errs, fmt.Errorf("máximo %d campos adicionales", maxAdditionalField))
	}
	for i, f := range d.AdditionalFields {
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, fmt.Errorf("campo adicional %d: nombre requerido", i+1))
		}
		if v := strings.TrimSpace(f.Value); v == "" || utf8.RuneCountInString(v) > maxAdditionalValue {
			errs = append(errs, fmt.Errorf("campo adicional %d: valor requerido (máx. 300 caracteres)", i+1))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// ValidatePayments comprueba que la suma de pagos coincida con el importe total.
func ValidatePayments(payments []*entity.InvoicePayment, total decimal.Decimal) error {
	var sum decimal.Decimal
	for _, p := range payments {
		sum = sum.Add(p.Total)
	}
	if !sum.Round(2).Equal(total.Round(2)) {
		return fmt.Errorf("%w: la suma de pagos (%s) no coincide con el total (%s)",
			domain.ErrInvalidInput, sum.StringFixed(2), total.StringFixed(2))
	}
	return nil
}

// BuildPayments convierte los pagos del borrador; sin pagos se asume un único
// pago 01 (sin utilización del sistema financiero) por el total.
func BuildPayments(draft []entity.DraftPayment, total decimal.Decimal) ([]*entity.InvoicePayment, error) {
	if len(draft) == 0 {
		return []*entity.InvoicePayment{{Method: pkgsri.PaymentCash, Total: total}}, nil
	}
	out := make([]*entity.InvoicePayment, 0, len(draft))
	for _, p := range draft {
		out = append(out, &entity.InvoicePayment{
			Method:   p.Method,
			Total:    p.Total.Round(2),
			Term:     p.Term,
			TimeUnit: p.TimeUnit,
		})
	}
	if err := ValidatePayments(out, total); err != nil {
		return nil, err
	}
	return out, nil
}
