package billing

import (
	"strings"
	"time"

	"github.com/Eridaras/SistemaMedico/internal/application/dto"
	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

const issueDateLayout = "2006-01-02"

// draftFromRequest convierte el body HTTP en el borrador de dominio.
func draftFromRequest(in dto.CreateSRIInvoiceRequest) (*entity.InvoiceDraft, error) {
	draft := &entity.InvoiceDraft{
		BuyerIDType:  strings.TrimSpace(in.TipoIdentificacion),
		BuyerID:      strings.TrimSpace(in.Identificacion),
		BuyerName:    strings.TrimSpace(in.RazonSocial),
		BuyerAddress: strings.TrimSpace(in.Direccion),
		BuyerEmail:   strings.TrimSpace(in.Email),
		BuyerPhone:   strings.TrimSpace(in.Telefono),
	}
	if in.FechaEmision != "" {
		d, err := time.ParseInLocation(issueDateLayout, in.FechaEmision, time.Local)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		draft.IssueDate = d
	}
	for _, it := range in.Items {
		draft.Items = append(draft.Items, entity.DraftItem{
			MainCode:          strings.TrimSpace(it.CodigoPrincipal),
			AuxiliaryCode:     strings.TrimSpace(it.CodigoAuxiliar),
			Description:       strings.TrimSpace(it.Descripcion),
			Quantity:          it.Cantidad,
			UnitPrice:         it.PrecioUnitario,
			Discount:          it.Descuento,
			TaxPercentageCode: strings.TrimSpace(it.CodigoPorcentaje),
			TaxRate:           it.Tarifa,
		})
	}
	for _, p := range in.Pagos {
		draft.Payments = append(draft.Payments, entity.DraftPayment{
			Method:   strings.TrimSpace(p.FormaPago),
			Total:    p.Total,
			Term:     p.Plazo,
			TimeUnit: strings.TrimSpace(p.UnidadTiempo),
		})
	}
	for _, f := range in.CamposAdicionales {
		draft.AdditionalFields = append(draft.AdditionalFields, entity.AdditionalField{
			Name:  strings.TrimSpace(f.Nombre),
			Value: strings.TrimSpace(f.Valor),
		})
	}
	return draft, nil
}

// toInvoiceResponse arma la respuesta; log puede ser nil en listados.
func toInvoiceResponse(inv *entity.Invoice, log []*entity.AuthorizationRecord) *dto.SRIInvoiceResponse {
	out := &dto.SRIInvoiceResponse{
		ID:                 inv.ID,
		Numero:             inv.Number,
		Secuencial:         inv.Sequence,
		ClaveAcceso:        inv.AccessKey,
		Version:            inv.DocumentVersion,
		FechaEmision:       inv.IssueDate.Format(issueDateLayout),
		Ambiente:           inv.Environment,
		TipoIdentificacion: inv.BuyerIDType,
		Identificacion:     inv.BuyerID,
		RazonSocial:        inv.BuyerName,
		Direccion:          inv.BuyerAddress,
		Email:              inv.BuyerEmail,
		Telefono:           inv.BuyerPhone,
		TotalSinImpuestos:  inv.TotalWithoutTax,
		TotalDescuento:     inv.TotalDiscount,
		TotalImpuestos:     inv.TotalTax,
		ImporteTotal:       inv.Total,
		Status:             inv.Status,
		EstadoSRI:          string(inv.SRIStatus),
		MensajeSRI:         inv.SRIMessage,
		NumeroAutorizacion: inv.AuthorizationNumber,
		FechaAutorizacion:  inv.AuthorizationDate,
		Firmado:            inv.Signed,
		ChecksumFirmado:    inv.SignedChecksum,
	}
	for _, it := range inv.Items {
		out.Items = append(out.Items, dto.SRIInvoiceItemResponse{
			Linea:                  it.LineNumber,
			CodigoPrincipal:        it.MainCode,
			CodigoAuxiliar:         it.AuxiliaryCode,
			Descripcion:            it.Description,
			Cantidad:               it.Quantity,
			PrecioUnitario:         it.UnitPrice,
			Descuento:              it.Discount,
			CodigoPorcentaje:       it.TaxPercentageCode,
			Tarifa:                 it.TaxRate,
			PrecioTotalSinImpuesto: it.Subtotal,
			ValorImpuesto:          it.TaxAmount,
		})
	}
	for _, p := range inv.Payments {
		out.Pagos = append(out.Pagos, dto.SRIPaymentResponse{
			FormaPago:    p.Method,
			Descripcion:  pkgsri.PaymentMethods[p.Method],
			Total:        p.Total,
			Plazo:        p.Term,
			UnidadTiempo: p.TimeUnit,
		})
	}
	for _, f := range inv.AdditionalFields {
		out.CamposAdicionales = append(out.CamposAdicionales, dto.SRIAdditionalFieldRequest{Nombre: f.Name, Valor: f.Value})
	}
	for _, r := range log {
		out.Bitacora = append(out.Bitacora, dto.AuthorizationRecordResponse{
			Evento:             r.Event,
			EstadoSRI:          r.AuthorityStatus,
			ClaveAcceso:        r.AccessKey,
			NumeroAutorizacion: r.AuthorizationNumber,
			FechaAutorizacion:  r.AuthorizationDate,
			Mensaje:            r.Message,
			Fecha:              r.CreatedAt,
		})
	}
	return out
}

const maskedSecret = "********"

func toConfigResponse(p *entity.IssuerProfile) *dto.SRIConfigResponse {
	out := &dto.SRIConfigResponse{
		ID:                    p.ID,
		RUC:                   p.RUC,
		RazonSocial:           p.LegalName,
		NombreComercial:       p.TradeName,
		DirMatriz:             p.MainAddress,
		DirEstablecimiento:    p.EstablishmentAddress,
		Establecimiento:       p.Establishment,
		PuntoEmision:          p.PointOfSale,
		Ambiente:              p.Environment,
		AmbienteNombre:        pkgsri.EnvironmentName(p.Environment),
		TipoEmision:           p.EmissionType,
		CodigoNumerico:        p.NumericCode,
		SecuencialActual:      p.CurrentSequence,
		ObligadoContabilidad:  p.AccountingFlag(),
		ContribuyenteEspecial: p.SpecialTaxpayer,
		Email:                 p.Email,
		Telefono:              p.Phone,
		CertPath:              p.CertificatePath,
	}
	if p.CertificatePassword != "" {
		out.CertPassword = maskedSecret
	}
	return out
}
