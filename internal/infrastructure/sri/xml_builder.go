package sri

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// ComprobanteID valor del atributo id del elemento raíz; la Reference de la firma apunta a #comprobante.
const ComprobanteID = "comprobante"

// XMLBuilderService construye el XML de la factura (esquema factura v2.1.0, sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el []byte del comprobante. El orden de los elementos es el del XSD
// del SRI y no debe alterarse.
func (s *XMLBuilderService) Build(ctx *InvoiceBuildContext) ([]byte, error) {
	if ctx == nil || ctx.Profile == nil || ctx.Invoice == nil {
		return nil, fmt.Errorf("sri: faltan emisor o factura en el contexto")
	}
	if len(ctx.Invoice.Items) == 0 {
		return nil, fmt.Errorf("sri: la factura no tiene detalles")
	}
	if ctx.Invoice.AccessKey == "" {
		return nil, fmt.Errorf("sri: la factura no tiene clave de acceso")
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	if err := enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
		return nil, err
	}
	root := xml.StartElement{
		Name: xml.Name{Local: "factura"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: ComprobanteID},
			{Name: xml.Name{Local: "version"}, Value: pkgsri.VersionInvoice},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	s.writeInfoTributaria(enc, ctx)
	s.writeInfoFactura(enc, ctx)
	s.writeDetalles(enc, ctx)
	s.writeInfoAdicional(enc, ctx)

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("sri: serializar XML: %w", err)
	}
	return buf.Bytes(), nil
}

// writeInfoTributaria bloque de identificación del emisor y del comprobante.
func (s *XMLBuilderService) writeInfoTributaria(enc *xml.Encoder, ctx *InvoiceBuildContext) {
	p, inv := ctx.Profile, ctx.Invoice
	start(enc, "infoTributaria")
	writeElem(enc, "ambiente", p.Environment)
	writeElem(enc, "tipoEmision", p.EmissionType)
	writeElem(enc, "razonSocial", cleanText(p.LegalName))
	if p.TradeName != "" {
		writeElem(enc, "nombreComercial", cleanText(p.TradeName))
	}
	writeElem(enc, "ruc", p.RUC)
	writeElem(enc, "claveAcceso", inv.AccessKey)
	writeElem(enc, "codDoc", pkgsri.DocumentTypeInvoice)
	writeElem(enc, "estab", p.Establishment)
	writeElem(enc, "ptoEmi", p.PointOfSale)
	writeElem(enc, "secuencial", fmt.Sprintf("%09d", inv.Sequence))
	writeElem(enc, "dirMatriz", cleanText(p.MainAddress))
	end(enc, "infoTributaria")
}

// writeInfoFactura cabecera: fecha, comprador, totales por tarifa y pagos.
func (s *XMLBuilderService) writeInfoFactura(enc *xml.Encoder, ctx *InvoiceBuildContext) {
	p, inv, t := ctx.Profile, ctx.Invoice, ctx.Totals
	start(enc, "infoFactura")
	writeElem(enc, "fechaEmision", inv.IssueDate.Format("02/01/2006"))
	writeElem(enc, "dirEstablecimiento", cleanText(p.EstablishmentAddressOrMain()))
	if p.SpecialTaxpayer != "" {
		writeElem(enc, "contribuyenteEspecial", p.SpecialTaxpayer)
	}
	writeElem(enc, "obligadoContabilidad", p.AccountingFlag())
	writeElem(enc, "tipoIdentificacionComprador", inv.BuyerIDType)
	writeElem(enc, "razonSocialComprador", cleanText(inv.BuyerName))
	writeElem(enc, "identificacionComprador", inv.BuyerID)
	if inv.BuyerAddress != "" {
		writeElem(enc, "direccionComprador", cleanText(inv.BuyerAddress))
	}
	writeElem(enc, "totalSinImpuestos", formatAmount(t.TotalWithoutTax))
	writeElem(enc, "totalDescuento", formatAmount(t.TotalDiscount))

	start(enc, "totalConImpuestos")
	for _, g := range t.Groups {
		start(enc, "totalImpuesto")
		writeElem(enc, "codigo", g.TaxCode)
		writeElem(enc, "codigoPorcentaje", g.PercentageCode)
		writeElem(enc, "baseImponible", formatAmount(g.Base))
		writeElem(enc, "valor", formatAmount(g.Tax))
		end(enc, "totalImpuesto")
	}
	end(enc, "totalConImpuestos")

	writeElem(enc, "propina", formatAmount(decimal.Zero))
	writeElem(enc, "importeTotal", formatAmount(t.Total))
	writeElem(enc, "moneda", pkgsri.CurrencyDollar)

	start(enc, "pagos")
	for _, pay := range inv.Payments {
		start(enc, "pago")
		writeElem(enc, "formaPago", pay.Method)
		writeElem(enc, "total", formatAmount(pay.Total))
		if pay.Term != nil {
			writeElem(enc, "plazo", strconv.Itoa(*pay.Term))
			unit := pay.TimeUnit
			if unit == "" {
				unit = pkgsri.TimeUnitDays
			}
			writeElem(enc, "unidadTiempo", unit)
		}
		end(enc, "pago")
	}
	end(enc, "pagos")
	end(enc, "infoFactura")
}

// writeDetalles una entrada <detalle> por línea, en el orden del borrador.
func (s *XMLBuilderService) writeDetalles(enc *xml.Encoder, ctx *InvoiceBuildContext) {
	start(enc, "detalles")
	for _, it := range ctx.Invoice.Items {
		start(enc, "detalle")
		writeElem(enc, "codigoPrincipal", cleanText(it.MainCode))
		if it.AuxiliaryCode != "" {
			writeElem(enc, "codigoAuxiliar", cleanText(it.AuxiliaryCode))
		}
		writeElem(enc, "descripcion", cleanText(it.Description))
		writeElem(enc, "cantidad", formatQuantity(it.Quantity))
		writeElem(enc, "precioUnitario", formatUnitPrice(it.UnitPrice))
		writeElem(enc, "descuento", formatAmount(it.Discount))
		writeElem(enc, "precioTotalSinImpuesto", formatAmount(it.Subtotal))
		start(enc, "impuestos")
		start(enc, "impuesto")
		writeElem(enc, "codigo", it.TaxCode)
		writeElem(enc, "codigoPorcentaje", it.TaxPercentageCode)
		writeElem(enc, "tarifa", formatRate(it.TaxRate))
		writeElem(enc, "baseImponible", formatAmount(it.Subtotal))
		writeElem(enc, "valor", formatAmount(it.TaxAmount))
		end(enc, "impuesto")
		end(enc, "impuestos")
		end(enc, "detalle")
	}
	end(enc, "detalles")
}

// writeInfoAdicional bloque opcional; incluye contacto del comprador si existe.
func (s *XMLBuilderService) writeInfoAdicional(enc *xml.Encoder, ctx *InvoiceBuildContext) {
	inv := ctx.Invoice
	type campo struct{ nombre, valor string }
	var campos []campo
	if inv.BuyerEmail != "" {
		campos = append(campos, campo{"Email", inv.BuyerEmail})
	}
	if inv.BuyerPhone != "" {
		campos = append(campos, campo{"Telefono", inv.BuyerPhone})
	}
	for _, f := range inv.AdditionalFields {
		campos = append(campos, campo{f.Name, f.Value})
	}
	if len(campos) == 0 {
		return
	}
	start(enc, "infoAdicional")
	for _, c := range campos {
		_ = enc.EncodeToken(xml.StartElement{
			Name: xml.Name{Local: "campoAdicional"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "nombre"}, Value: cleanText(c.nombre)}},
		})
		_ = enc.EncodeToken(xml.CharData(cleanText(c.valor)))
		_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "campoAdicional"}})
	}
	end(enc, "infoAdicional")
}

// ── helpers ───────────────────────────────────────────────────────────────────

func start(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func end(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeElem(enc *xml.Encoder, local, value string) {
	start(enc, local)
	_ = enc.EncodeToken(xml.CharData(value))
	end(enc, local)
}

// cleanText normaliza a NFC y elimina saltos de línea; el SRI rechaza
// caracteres compuestos en forma descompuesta.
func cleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFC.String(s)
}

// formatAmount valores monetarios con exactamente 2 decimales.
func formatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// formatQuantity cantidades con exactamente 2 decimales.
func formatQuantity(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// formatUnitPrice precio unitario con exactamente 6 decimales.
func formatUnitPrice(d decimal.Decimal) string {
	return d.Round(6).StringFixed(6)
}

// formatRate tarifa como entero (15, 0).
func formatRate(d decimal.Decimal) string {
	return d.Round(0).StringFixed(0)
}
