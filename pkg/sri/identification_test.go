package sri_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eridaras/SistemaMedico/pkg/sri"
)

func TestValidateCedula(t *testing.T) {
	for _, ok := range []string{"1710034065", "0102030400", "0912345675"} {
		assert.NoError(t, sri.ValidateCedula(ok), "cédula %s debe ser válida", ok)
	}
	for _, bad := range []string{"1710034064", "171003406", "2510034065", "1770034065", "17100340A5"} {
		assert.Error(t, sri.ValidateCedula(bad), "cédula %s debe ser rechazada", bad)
	}
}

func TestValidateRUC(t *testing.T) {
	assert.NoError(t, sri.ValidateRUC("0190329773001"), "RUC de sociedad")
	assert.NoError(t, sri.ValidateRUC("1710034065001"), "RUC de persona natural")

	assert.Error(t, sri.ValidateRUC("1710034064001"), "cédula base inválida")
	assert.Error(t, sri.ValidateRUC("0190329773000"), "establecimiento 000")
	assert.Error(t, sri.ValidateRUC("019032977300"), "12 dígitos")
	assert.Error(t, sri.ValidateRUC("0170329773001"), "tercer dígito 7")
}

func TestValidateBuyerIdentification(t *testing.T) {
	assert.NoError(t, sri.ValidateBuyerIdentification(sri.IdentificationTypeFinalConsumer, sri.FinalConsumerID))
	assert.NoError(t, sri.ValidateBuyerIdentification(sri.IdentificationTypePassport, "AB123456"))
	assert.Error(t, sri.ValidateBuyerIdentification(sri.IdentificationTypeFinalConsumer, "1710034065"))
	assert.Error(t, sri.ValidateBuyerIdentification("99", "1710034065"))
}

func TestResolveIVA(t *testing.T) {
	code, rate, err := sri.ResolveIVA("", decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.Equal(t, sri.IVACode15, code)
	assert.True(t, rate.Equal(decimal.NewFromInt(15)))

	code, rate, err = sri.ResolveIVA(sri.IVACode0, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "0", code)
	assert.True(t, rate.IsZero())

	_, _, err = sri.ResolveIVA(sri.IVACode15, decimal.NewFromInt(12))
	assert.Error(t, err, "código y tarifa incoherentes")

	_, _, err = sri.ResolveIVA("", decimal.NewFromInt(19))
	assert.Error(t, err, "tarifa inexistente en Ecuador")
}

func TestListPaymentMethods_Ordenado(t *testing.T) {
	list := sri.ListPaymentMethods()
	require.Len(t, list, 8)
	assert.Equal(t, "01", list[0].Code)
	assert.Equal(t, "21", list[len(list)-1].Code)
	assert.Equal(t, "TARJETA DE CREDITO", sri.PaymentMethods[sri.PaymentCreditCard])
}
