package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eridaras/SistemaMedico/internal/application/dto"
	"github.com/Eridaras/SistemaMedico/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestSRIConfigUseCase_GetConfig_EnmascaraPassword(t *testing.T) {
	store := newMemStore(testProfile())
	store.profile.CertificatePassword = "secreto"
	uc := NewSRIConfigUseCase(&memProfileRepo{s: store})

	cfg, err := uc.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "********", cfg.CertPassword)
	assert.Equal(t, "NO", cfg.ObligadoContabilidad)
	assert.Equal(t, int64(41), cfg.SecuencialActual)
	assert.Equal(t, "0190329773001", cfg.RUC)
}

func TestSRIConfigUseCase_GetConfig_SinConfiguracion(t *testing.T) {
	uc := NewSRIConfigUseCase(&memProfileRepo{s: newMemStore(nil)})
	_, err := uc.GetConfig(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveConfig)
}

func TestSRIConfigUseCase_UpdateConfig_ParcheNoTocaSecuencial(t *testing.T) {
	store := newMemStore(testProfile())
	store.profile.CertificatePassword = "secreto"
	uc := NewSRIConfigUseCase(&memProfileRepo{s: store})

	out, err := uc.UpdateConfig(context.Background(), dto.UpdateSRIConfigRequest{
		RazonSocial:          strPtr("CLINICA SAN JOSE CIA. LTDA."),
		PuntoEmision:         strPtr("002"),
		ObligadoContabilidad: strPtr("si"),
		CertPassword:         strPtr("********"),
	})
	require.NoError(t, err)
	assert.Equal(t, "CLINICA SAN JOSE CIA. LTDA.", out.RazonSocial)
	assert.Equal(t, "002", out.PuntoEmision)
	assert.Equal(t, "SI", out.ObligadoContabilidad)

	assert.Equal(t, int64(41), store.profile.CurrentSequence)
	assert.Equal(t, "secreto", store.profile.CertificatePassword, "la máscara no reemplaza la contraseña")
	assert.Equal(t, "Clínica San José", store.profile.TradeName, "los campos no enviados se conservan")
}

func TestSRIConfigUseCase_UpdateConfig_CreaSiNoExiste(t *testing.T) {
	store := newMemStore(nil)
	uc := NewSRIConfigUseCase(&memProfileRepo{s: store})

	out, err := uc.UpdateConfig(context.Background(), dto.UpdateSRIConfigRequest{
		RUC:             strPtr("0190329773001"),
		RazonSocial:     strPtr("CLINICA SAN JOSE S.A."),
		DirMatriz:       strPtr("Av. Solano 1-23"),
		Establecimiento: strPtr("001"),
		PuntoEmision:    strPtr("001"),
		CodigoNumerico:  strPtr("12345678"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "1", out.Ambiente, "ambiente de pruebas por defecto")
	require.NotNil(t, store.profile)
	assert.True(t, store.profile.Active)
	assert.Equal(t, int64(0), store.profile.CurrentSequence)
}

func TestSRIConfigUseCase_UpdateConfig_Invalido(t *testing.T) {
	cases := map[string]dto.UpdateSRIConfigRequest{
		"RUC sin establecimiento": {RUC: strPtr("0190329773000")},
		"punto de emisión corto":  {PuntoEmision: strPtr("1")},
		"ambiente desconocido":    {Ambiente: strPtr("3")},
		"código numérico corto":   {CodigoNumerico: strPtr("123")},
		"obligado inválido":       {ObligadoContabilidad: strPtr("TAL VEZ")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemStore(testProfile())
			uc := NewSRIConfigUseCase(&memProfileRepo{s: store})

			_, err := uc.UpdateConfig(context.Background(), in)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, "001", store.profile.PointOfSale, "un parche inválido no se persiste")
		})
	}
}
