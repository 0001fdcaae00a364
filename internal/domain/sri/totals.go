package sri

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

var hundred = decimal.NewFromInt(100)

// TaxGroup subtotal de impuestos por tarifa (un <totalImpuesto>).
type TaxGroup struct {
	TaxCode        string
	PercentageCode string
	Rate           decimal.Decimal
	Base           decimal.Decimal
	Tax            decimal.Decimal
}

// Totals resultado del cálculo de la factura.
type Totals struct {
	Groups          []TaxGroup // solo grupos con base distinta de cero
	TotalWithoutTax decimal.Decimal
	TotalDiscount   decimal.Decimal
	TotalTax        decimal.Decimal
	Total           decimal.Decimal
}

// LineNet neto de la línea: cantidad × precio unitario − descuento, a 2 decimales.
func LineNet(qty, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Sub(discount).Round(2)
}

// LineTax impuesto de la línea: neto × tarifa / 100, a 2 decimales.
func LineTax(net, rate decimal.Decimal) decimal.Decimal {
	return net.Mul(rate).Div(hundred).Round(2)
}

// BuildItems convierte las líneas del borrador en InvoiceItem con neto e impuesto
// calculados y el par codigoPorcentaje/tarifa resuelto contra el catálogo.
func BuildItems(draft []entity.DraftItem) ([]*entity.InvoiceItem, error) {
	items := make([]*entity.InvoiceItem, 0, len(draft))
	for i, d := range draft {
		code, rate, err := pkgsri.ResolveIVA(d.TaxPercentageCode, d.TaxRate)
		if err != nil {
			return nil, fmt.Errorf("%w: línea %d: %v", domain.ErrInvalidInput, i+1, err)
		}
		net := LineNet(d.Quantity, d.UnitPrice, d.Discount)
		items = append(items, &entity.InvoiceItem{
			LineNumber:        i + 1,
			MainCode:          d.MainCode,
			AuxiliaryCode:     d.AuxiliaryCode,
			Description:       d.Description,
			Quantity:          d.Quantity,
			UnitPrice:         d.UnitPrice,
			Discount:          d.Discount,
			TaxCode:           pkgsri.TaxCodeIVA,
			TaxPercentageCode: code,
			TaxRate:           rate,
			Subtotal:          net,
			TaxAmount:         LineTax(net, rate),
		})
	}
	return items, nil
}

// ComputeTotals agrupa las líneas por (código, codigoPorcentaje) y calcula los totales.
// total = Σ bases agrupadas + Σ impuestos agrupados.
func ComputeTotals(items []*entity.InvoiceItem) Totals {
	type key struct{ code, pct string }
	groups := map[key]*TaxGroup{}
	var t Totals
	for _, it := range items {
		k := key{it.TaxCode, it.TaxPercentageCode}
		g, ok := groups[k]
		if !ok {
			g = &TaxGroup{TaxCode: it.TaxCode, PercentageCode: it.TaxPercentageCode, Rate: it.TaxRate}
			groups[k] = g
		}
		g.Base = g.Base.Add(it.Subtotal)
		g.Tax = g.Tax.Add(it.TaxAmount)
		t.TotalDiscount = t.TotalDiscount.Add(it.Discount)
	}
	for _, g := range groups {
		if g.Base.IsZero() {
			continue
		}
		t.Groups = append(t.Groups, *g)
		t.TotalWithoutTax = t.TotalWithoutTax.Add(g.Base)
		t.TotalTax = t.TotalTax.Add(g.Tax)
	}
	sort.Slice(t.Groups, func(i, j int) bool {
		if !t.Groups[i].Rate.Equal(t.Groups[j].Rate) {
			return t.Groups[i].Rate.LessThan(t.Groups[j].Rate)
		}
		return t.Groups[i].PercentageCode < t.Groups[j].PercentageCode
	})
	t.TotalDiscount = t.TotalDiscount.Round(2)
	t.Total = t.TotalWithoutTax.Add(t.TotalTax).Round(2)
	return t
}

// ZeroRatedBase base imponible de tarifa 0 (0 si no hay).
func (t Totals) ZeroRatedBase() decimal.Decimal {
	var sum decimal.Decimal
	for _, g := range t.Groups {
		if g.Rate.IsZero() {
			sum = sum.Add(g.Base)
		}
	}
	return sum
}

// TaxedBase base imponible gravada con tarifa distinta de 0.
func (t Totals) TaxedBase() decimal.Decimal {
	var sum decimal.Decimal
	for _, g := range t.Groups {
		if !g.Rate.IsZero() {
			sum = sum.Add(g.Base)
		}
	}
	return sum
}
