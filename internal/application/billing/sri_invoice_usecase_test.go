package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eridaras/SistemaMedico/internal/application/dto"
	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	infrasri "github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/storage"
)

func newInvoiceUseCase(h *harness) *SRIInvoiceUseCase {
	return NewSRIInvoiceUseCase(h.orch, &memInvoiceRepo{s: h.store}, &memLogRepo{s: h.store}, h.archive)
}

func createRequest() dto.CreateSRIInvoiceRequest {
	return dto.CreateSRIInvoiceRequest{
		FechaEmision:       "2024-12-05",
		TipoIdentificacion: "05",
		Identificacion:     "1710034065",
		RazonSocial:        " Juan Pérez ",
		Items: []dto.SRIInvoiceItemRequest{
			{CodigoPrincipal: "CONS-01", Descripcion: "Consulta general", Cantidad: decimal.NewFromInt(1), PrecioUnitario: decimal.NewFromInt(30), CodigoPorcentaje: "0"},
			{CodigoPrincipal: "INS-01", Descripcion: "Insumos médicos", Cantidad: decimal.NewFromInt(3), PrecioUnitario: decimal.NewFromInt(15), Tarifa: decimal.NewFromInt(15)},
		},
		Pagos: []dto.SRIPaymentRequest{{FormaPago: "19", Total: decimal.RequireFromString("81.75")}},
	}
}

func TestSRIInvoiceUseCase_CreateYGet(t *testing.T) {
	h := newHarness(t)
	uc := newInvoiceUseCase(h)

	created, err := uc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	assert.Equal(t, goldenAccessKey, created.ClaveAcceso)
	assert.Equal(t, "Juan Pérez", created.RazonSocial)
	assert.Equal(t, "2024-12-05", created.FechaEmision)
	assert.Equal(t, string(entity.StateGenerated), created.EstadoSRI)
	require.Len(t, created.Pagos, 1)
	assert.Equal(t, "TARJETA DE CREDITO", created.Pagos[0].Descripcion)
	require.Len(t, created.Bitacora, 1)
	assert.Equal(t, entity.EventGenerated, created.Bitacora[0].Evento)

	got, err := uc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, "4", got.Items[1].CodigoPorcentaje, "15% se resuelve al código 4")
	assert.True(t, decimal.RequireFromString("6.75").Equal(got.Items[1].ValorImpuesto))
}

func TestSRIInvoiceUseCase_Create_FechaInvalida(t *testing.T) {
	h := newHarness(t)
	uc := newInvoiceUseCase(h)
	in := createRequest()
	in.FechaEmision = "05/12/2024"

	_, err := uc.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSRIInvoiceUseCase_Authorize_DevuelveEstadoConError(t *testing.T) {
	h := newHarness(t)
	uc := newInvoiceUseCase(h)
	created, err := uc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	h.authority.script([]infrasri.SubmitOutcome{{
		Status: infrasri.SubmitFault,
		Fault:  &infrasri.Fault{Kind: infrasri.FaultTransport, Message: "connection refused"},
	}}, nil)

	out, err := uc.Authorize(context.Background(), created.ID)
	require.ErrorIs(t, err, domain.ErrTransport)
	require.NotNil(t, out)
	assert.Equal(t, string(entity.StateSubmitted), out.EstadoSRI)
	assert.Len(t, out.Bitacora, 2)
}

func TestSRIInvoiceUseCase_ListYEstadisticas(t *testing.T) {
	h := newHarness(t)
	uc := newInvoiceUseCase(h)
	first, err := uc.Create(context.Background(), createRequest())
	require.NoError(t, err)
	_, err = uc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	h.authority.script([]infrasri.SubmitOutcome{received()}, []infrasri.AuthorizationOutcome{authorizedOutcome()})
	_, err = uc.Authorize(context.Background(), first.ID)
	require.NoError(t, err)

	list, err := uc.List(context.Background(), dto.ListSRIInvoicesQuery{Estado: "authorized"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, first.ID, list.Items[0].ID)
	assert.Equal(t, 1, list.Page.Total)
	assert.Equal(t, 20, list.Page.Limit)

	stats, err := uc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Autorizadas)
	assert.Equal(t, 1, stats.Pendientes)
	assert.True(t, decimal.RequireFromString("81.75").Equal(stats.MontoAutorizado))
}

func TestSRIInvoiceUseCase_List_FiltrosInvalidos(t *testing.T) {
	h := newHarness(t)
	uc := newInvoiceUseCase(h)

	cases := map[string]dto.ListSRIInvoicesQuery{
		"estado inexistente": {Estado: "PAGADA"},
		"fecha mal formada":  {From: "2024/12/01"},
		"rango invertido":    {From: "2024-12-31", To: "2024-12-01"},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.List(context.Background(), q)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSRIInvoiceUseCase_DownloadXML(t *testing.T) {
	h := newHarness(t)
	uc := newInvoiceUseCase(h)
	created, err := uc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	doc, err := uc.DownloadXML(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.VariantPending, doc.Variant, "sin autorización se entrega el firmado")
	assert.Equal(t, goldenAccessKey+".xml", doc.FileName)
	assert.Equal(t, created.ChecksumFirmado, storage.Checksum(doc.Content))

	h.authority.script([]infrasri.SubmitOutcome{received()}, []infrasri.AuthorizationOutcome{authorizedOutcome()})
	_, err = uc.Authorize(context.Background(), created.ID)
	require.NoError(t, err)

	doc, err = uc.DownloadXML(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.VariantAuthorized, doc.Variant)
	assert.Equal(t, created.ChecksumFirmado, storage.Checksum(doc.Content))
}

func TestSRIInvoiceUseCase_DownloadXML_ChecksumAlterado(t *testing.T) {
	h := newHarness(t)
	uc := newInvoiceUseCase(h)
	created, err := uc.Create(context.Background(), createRequest())
	require.NoError(t, err)

	h.store.mu.Lock()
	inv := h.store.invoices[created.ID]
	inv.XMLSigned += "<!-- alterado -->"
	h.store.invoices[created.ID] = inv
	h.store.mu.Unlock()

	_, err = uc.DownloadXML(context.Background(), created.ID)
	assert.ErrorIs(t, err, domain.ErrChecksumMismatch)
}

func TestSRIInvoiceUseCase_DownloadXML_NoExiste(t *testing.T) {
	h := newHarness(t)
	uc := newInvoiceUseCase(h)

	_, err := uc.DownloadXML(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
