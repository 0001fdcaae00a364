package sri_test

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	domainsri "github.com/Eridaras/SistemaMedico/internal/domain/sri"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testAccessKey = "0512202401019032977300110010010000000421234567814"

func testProfile() *entity.IssuerProfile {
	return &entity.IssuerProfile{
		RUC:           "0190329773001",
		LegalName:     "CLINICA SAN JOSE S.A.",
		TradeName:     "Clínica San José",
		MainAddress:   "Av. Solano 1-23 y Av. 12 de Abril",
		Establishment: "001",
		PointOfSale:   "001",
		Environment:   "1",
		EmissionType:  "1",
		NumericCode:   "12345678",
	}
}

// testInvoice factura con una línea tarifa 0 (30.00) y una línea 15% (45.00).
func testInvoice(t *testing.T) (*entity.Invoice, domainsri.Totals) {
	t.Helper()
	items, err := domainsri.BuildItems([]entity.DraftItem{
		{MainCode: "CONS-01", Description: "Consulta general", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(30), TaxRate: decimal.Zero},
		{MainCode: "INS-01", Description: "Insumos médicos", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(15), TaxRate: decimal.NewFromInt(15)},
	})
	require.NoError(t, err)
	totals := domainsri.ComputeTotals(items)
	pays, err := domainsri.BuildPayments(nil, totals.Total)
	require.NoError(t, err)

	return &entity.Invoice{
		Sequence:     42,
		AccessKey:    testAccessKey,
		IssueDate:    time.Date(2024, 12, 5, 10, 0, 0, 0, time.UTC),
		BuyerIDType:  "05",
		BuyerID:      "1710034065",
		BuyerName:    "Juan Pérez",
		BuyerAddress: "Cuenca",
		BuyerEmail:   "juan@example.com",
		Items:        items,
		Payments:     pays,
	}, totals
}

func buildDoc(t *testing.T, ctx *sri.InvoiceBuildContext) *etree.Document {
	t.Helper()
	out, err := sri.NewXMLBuilderService().Build(ctx)
	require.NoError(t, err)
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	return doc
}

func childTags(e *etree.Element) []string {
	var tags []string
	for _, c := range e.ChildElements() {
		tags = append(tags, c.Tag)
	}
	return tags
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestBuild_RaizYDeclaracion(t *testing.T) {
	inv, totals := testInvoice(t)
	out, err := sri.NewXMLBuilderService().Build(&sri.InvoiceBuildContext{Profile: testProfile(), Invoice: inv, Totals: totals})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, string(out), `<factura id="comprobante" version="2.1.0">`)
}

func TestBuild_OrdenInfoTributaria(t *testing.T) {
	inv, totals := testInvoice(t)
	doc := buildDoc(t, &sri.InvoiceBuildContext{Profile: testProfile(), Invoice: inv, Totals: totals})

	info := doc.FindElement("/factura/infoTributaria")
	require.NotNil(t, info)
	assert.Equal(t, []string{
		"ambiente", "tipoEmision", "razonSocial", "nombreComercial", "ruc", "claveAcceso",
		"codDoc", "estab", "ptoEmi", "secuencial", "dirMatriz",
	}, childTags(info))
	assert.Equal(t, "000000042", info.SelectElement("secuencial").Text())
	assert.Equal(t, testAccessKey, info.SelectElement("claveAcceso").Text())
	assert.Equal(t, "01", info.SelectElement("codDoc").Text())
}

func TestBuild_InfoFacturaTotales(t *testing.T) {
	inv, totals := testInvoice(t)
	doc := buildDoc(t, &sri.InvoiceBuildContext{Profile: testProfile(), Invoice: inv, Totals: totals})

	info := doc.FindElement("/factura/infoFactura")
	require.NotNil(t, info)
	assert.Equal(t, "05/12/2024", info.SelectElement("fechaEmision").Text())
	assert.Equal(t, "NO", info.SelectElement("obligadoContabilidad").Text())
	assert.Equal(t, "75.00", info.SelectElement("totalSinImpuestos").Text())
	assert.Equal(t, "0.00", info.SelectElement("propina").Text())
	assert.Equal(t, "81.75", info.SelectElement("importeTotal").Text())
	assert.Equal(t, "DOLAR", info.SelectElement("moneda").Text())
	assert.Nil(t, info.SelectElement("contribuyenteEspecial"), "opcional ausente no se emite")

	groups := info.FindElements("totalConImpuestos/totalImpuesto")
	require.Len(t, groups, 2)
	assert.Equal(t, "0", groups[0].SelectElement("codigoPorcentaje").Text())
	assert.Equal(t, "30.00", groups[0].SelectElement("baseImponible").Text())
	assert.Equal(t, "4", groups[1].SelectElement("codigoPorcentaje").Text())
	assert.Equal(t, "6.75", groups[1].SelectElement("valor").Text())

	pago := info.FindElement("pagos/pago")
	require.NotNil(t, pago)
	assert.Equal(t, "01", pago.SelectElement("formaPago").Text())
	assert.Equal(t, "81.75", pago.SelectElement("total").Text())
}

func TestBuild_DetallesFormato(t *testing.T) {
	inv, totals := testInvoice(t)
	doc := buildDoc(t, &sri.InvoiceBuildContext{Profile: testProfile(), Invoice: inv, Totals: totals})

	det := doc.FindElements("/factura/detalles/detalle")
	require.Len(t, det, 2)
	assert.Equal(t, []string{
		"codigoPrincipal", "descripcion", "cantidad", "precioUnitario", "descuento",
		"precioTotalSinImpuesto", "impuestos",
	}, childTags(det[1]))
	assert.Equal(t, "3.00", det[1].SelectElement("cantidad").Text())
	assert.Equal(t, "15.000000", det[1].SelectElement("precioUnitario").Text())
	assert.Equal(t, "45.00", det[1].SelectElement("precioTotalSinImpuesto").Text())

	imp := det[1].FindElement("impuestos/impuesto")
	require.NotNil(t, imp)
	assert.Equal(t, "2", imp.SelectElement("codigo").Text())
	assert.Equal(t, "15", imp.SelectElement("tarifa").Text())
	assert.Equal(t, "6.75", imp.SelectElement("valor").Text())
}

func TestBuild_InfoAdicionalYNormalizacion(t *testing.T) {
	inv, totals := testInvoice(t)
	inv.BuyerName = "Jose\u0301 Pe\u0301rez" // forma descompuesta (NFD)
	inv.AdditionalFields = []*entity.AdditionalField{{Name: "Paciente", Value: "H.C. 1234"}}
	doc := buildDoc(t, &sri.InvoiceBuildContext{Profile: testProfile(), Invoice: inv, Totals: totals})

	assert.Equal(t, "Jos\u00e9 P\u00e9rez", doc.FindElement("/factura/infoFactura/razonSocialComprador").Text())

	campos := doc.FindElements("/factura/infoAdicional/campoAdicional")
	require.Len(t, campos, 2)
	assert.Equal(t, "Email", campos[0].SelectAttrValue("nombre", ""))
	assert.Equal(t, "juan@example.com", campos[0].Text())
	assert.Equal(t, "Paciente", campos[1].SelectAttrValue("nombre", ""))
}

func TestBuild_SinInfoAdicional(t *testing.T) {
	inv, totals := testInvoice(t)
	inv.BuyerEmail = ""
	doc := buildDoc(t, &sri.InvoiceBuildContext{Profile: testProfile(), Invoice: inv, Totals: totals})
	assert.Nil(t, doc.FindElement("/factura/infoAdicional"))
}

func TestBuild_ContextoInvalido(t *testing.T) {
	svc := sri.NewXMLBuilderService()
	_, err := svc.Build(nil)
	assert.Error(t, err)

	inv, totals := testInvoice(t)
	inv.Items = nil
	_, err = svc.Build(&sri.InvoiceBuildContext{Profile: testProfile(), Invoice: inv, Totals: totals})
	assert.Error(t, err)
}
