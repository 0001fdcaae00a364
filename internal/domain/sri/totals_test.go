package sri_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	"github.com/Eridaras/SistemaMedico/internal/domain/sri"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Escenario: línea gravada 15% (neto 45.00) y línea tarifa 0 (neto 30.00).
func TestComputeTotals_TarifaMixta(t *testing.T) {
	items, err := sri.BuildItems([]entity.DraftItem{
		{MainCode: "CONS-01", Description: "Consulta general", Quantity: dec("1"), UnitPrice: dec("30"), TaxRate: decimal.Zero},
		{MainCode: "INS-01", Description: "Insumos", Quantity: dec("3"), UnitPrice: dec("15"), TaxRate: dec("15")},
	})
	require.NoError(t, err)

	totals := sri.ComputeTotals(items)
	require.Len(t, totals.Groups, 2, "un grupo por tarifa no nula")

	assert.Equal(t, "30.00", totals.ZeroRatedBase().StringFixed(2))
	assert.Equal(t, "45.00", totals.TaxedBase().StringFixed(2))
	assert.Equal(t, "6.75", totals.TotalTax.StringFixed(2))
	assert.Equal(t, "75.00", totals.TotalWithoutTax.StringFixed(2))
	assert.Equal(t, "81.75", totals.Total.StringFixed(2))

	assert.Equal(t, pkgsri.IVACode0, totals.Groups[0].PercentageCode, "tarifa 0 primero")
	assert.Equal(t, pkgsri.IVACode15, totals.Groups[1].PercentageCode)
	assert.Equal(t, "6.75", items[1].TaxAmount.StringFixed(2))
}

func TestComputeTotals_SoloTarifaCero(t *testing.T) {
	items, err := sri.BuildItems([]entity.DraftItem{
		{MainCode: "A", Description: "A", Quantity: dec("2"), UnitPrice: dec("12.50"), TaxRate: decimal.Zero},
		{MainCode: "B", Description: "B", Quantity: dec("1"), UnitPrice: dec("5"), Discount: dec("1"), TaxRate: decimal.Zero},
	})
	require.NoError(t, err)
	totals := sri.ComputeTotals(items)
	require.Len(t, totals.Groups, 1, "solo se reporta el subtotal no nulo")
	assert.True(t, totals.TotalTax.IsZero())
	assert.Equal(t, "29.00", totals.Total.StringFixed(2))
	assert.Equal(t, "1.00", totals.TotalDiscount.StringFixed(2))
}

func TestComputeTotals_DescuentoYRedondeo(t *testing.T) {
	items, err := sri.BuildItems([]entity.DraftItem{
		{MainCode: "X", Description: "X", Quantity: dec("3"), UnitPrice: dec("3.333333"), Discount: dec("0.50"), TaxRate: dec("15")},
	})
	require.NoError(t, err)
	// 3 × 3.333333 = 9.999999 − 0.50 = 9.499999 → 9.50 ; 9.50 × 15% = 1.425 → 1.43
	assert.Equal(t, "9.50", items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "1.43", items[0].TaxAmount.StringFixed(2))
	assert.Equal(t, "10.93", sri.ComputeTotals(items).Total.StringFixed(2))
}

// Para conjuntos arbitrarios: total = Σ bases agrupadas + Σ impuestos agrupados.
func TestComputeTotals_PropiedadSuma(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rates := []decimal.Decimal{decimal.Zero, dec("5"), dec("12"), dec("15")}
	for n := 0; n < 200; n++ {
		var draft []entity.DraftItem
		for i := 0; i < 1+rng.Intn(8); i++ {
			qty := decimal.New(int64(1+rng.Intn(1000)), -2)
			price := decimal.New(int64(rng.Intn(10_000_000)), -6)
			draft = append(draft, entity.DraftItem{
				MainCode: "P", Description: "P", Quantity: qty, UnitPrice: price,
				TaxRate: rates[rng.Intn(len(rates))],
			})
		}
		items, err := sri.BuildItems(draft)
		require.NoError(t, err)
		totals := sri.ComputeTotals(items)

		var bases, taxes decimal.Decimal
		for _, g := range totals.Groups {
			bases = bases.Add(g.Base)
			taxes = taxes.Add(g.Tax)
			assert.False(t, g.Base.IsZero(), "no se reportan grupos en cero")
		}
		assert.True(t, totals.Total.Equal(bases.Add(taxes).Round(2)),
			"total %s != %s + %s", totals.Total, bases, taxes)
	}
}

func TestBuildItems_TarifaIncoherente(t *testing.T) {
	_, err := sri.BuildItems([]entity.DraftItem{
		{MainCode: "X", Description: "X", Quantity: dec("1"), UnitPrice: dec("1"), TaxPercentageCode: "4", TaxRate: dec("12")},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildPayments(t *testing.T) {
	pays, err := sri.BuildPayments(nil, dec("81.75"))
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, pkgsri.PaymentCash, pays[0].Method, "sin pagos se asume efectivo")

	_, err = sri.BuildPayments([]entity.DraftPayment{{Method: "19", Total: dec("80")}}, dec("81.75"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "la suma de pagos debe igualar el total")

	pays, err = sri.BuildPayments([]entity.DraftPayment{
		{Method: "19", Total: dec("50")}, {Method: "01", Total: dec("31.75")},
	}, dec("81.75"))
	require.NoError(t, err)
	assert.Len(t, pays, 2)
}

func TestValidateDraft(t *testing.T) {
	valid := &entity.InvoiceDraft{
		BuyerIDType: pkgsri.IdentificationTypeCedula, BuyerID: "1710034065", BuyerName: "Juan Pérez",
		Items: []entity.DraftItem{{MainCode: "C1", Description: "Consulta", Quantity: dec("1"), UnitPrice: dec("30")}},
	}
	require.NoError(t, sri.ValidateDraft(valid))

	invalid := &entity.InvoiceDraft{
		BuyerIDType: pkgsri.IdentificationTypeCedula, BuyerID: "1710034064", BuyerName: "",
		Items: []entity.DraftItem{{MainCode: "", Description: "X", Quantity: dec("0"), UnitPrice: dec("-1")}},
		Payments: []entity.DraftPayment{{Method: "99", Total: dec("1")}},
	}
	err := sri.ValidateDraft(invalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	for _, frag := range []string{"cédula", "comprador", "código principal", "cantidad", "precio", "forma de pago"} {
		assert.Contains(t, err.Error(), frag)
	}
}

func TestValidateProfile(t *testing.T) {
	p := &entity.IssuerProfile{
		RUC: "0190329773001", LegalName: "CLINICA SAN JOSE S.A.", MainAddress: "Av. Solano 1-23",
		Establishment: "001", PointOfSale: "001", Environment: "1", EmissionType: "1", NumericCode: "12345678",
	}
	require.NoError(t, sri.ValidateProfile(p))

	p.NumericCode = "123"
	p.Environment = "3"
	err := sri.ValidateProfile(p)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, sri.ValidateProfile(nil), domain.ErrNoActiveConfig)
}
