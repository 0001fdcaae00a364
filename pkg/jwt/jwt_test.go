package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eridaras/SistemaMedico/pkg/jwt"
)

const (
	secret = "secreto-de-pruebas"
	issuer = "sistema-medico-test"
)

var facturador = jwt.Identity{UserID: "u-1", CompanyID: "c-1", Role: jwt.RoleFacturador}

// ── Generate / Parse ─────────────────────────────────────────────────────────

func TestGenerateParse_ConservaIdentidad(t *testing.T) {
	tok, err := jwt.Generate(secret, issuer, facturador, time.Hour)
	require.NoError(t, err)

	id, err := jwt.Parse(secret, issuer, tok)
	require.NoError(t, err)
	assert.Equal(t, facturador, id)
}

func TestGenerate_RolDesconocido(t *testing.T) {
	_, err := jwt.Generate(secret, issuer, jwt.Identity{UserID: "u-1", Role: "bodeguero"}, time.Hour)
	assert.ErrorIs(t, err, jwt.ErrUnknownRole)
}

func TestGenerate_SinSecreto(t *testing.T) {
	_, err := jwt.Generate("", issuer, facturador, time.Hour)
	assert.ErrorIs(t, err, jwt.ErrEmptySecret)
}

func TestParse_Vencido(t *testing.T) {
	tok, err := jwt.Generate(secret, issuer, facturador, -time.Minute)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, issuer, tok)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)
}

func TestParse_OtroEmisor(t *testing.T) {
	tok, err := jwt.Generate(secret, "otro-sistema", facturador, time.Hour)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, issuer, tok)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	// sin emisor configurado no se compara
	_, err = jwt.Parse(secret, "", tok)
	assert.NoError(t, err)
}

func TestParse_SecretoIncorrecto(t *testing.T) {
	tok, err := jwt.Generate(secret, issuer, facturador, time.Hour)
	require.NoError(t, err)

	_, err = jwt.Parse("otro-secreto", issuer, tok)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestParse_RolAjenoFirmadoAMano(t *testing.T) {
	claims := jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Issuer: issuer, ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u-1",
		Role:             "superusuario",
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = jwt.Parse(secret, issuer, tok)
	assert.ErrorIs(t, err, jwt.ErrUnknownRole)
}

func TestParse_AlgoritmoNoHMAC(t *testing.T) {
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, jwt.Claims{Role: jwt.RoleAdmin}).
		SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwt.Parse(secret, "", tok)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{jwt.RoleAdmin, jwt.RoleFacturador, jwt.RoleAuditor} {
		assert.True(t, jwt.ValidRole(r), r)
	}
	assert.False(t, jwt.ValidRole(""))
	assert.False(t, jwt.ValidRole("vendedor"))
}
