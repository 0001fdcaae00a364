package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eridaras/SistemaMedico/pkg/config"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	cfg := config.FromViper(viper.New())

	assert.Equal(t, "1", cfg.SRI.Environment)
	assert.Equal(t, "required", cfg.SRI.SigningMode)
	assert.Equal(t, 30*time.Second, cfg.SRI.Timeout)
	assert.Equal(t, 3, cfg.SRI.PollAttempts)
	assert.Equal(t, 3*time.Second, cfg.SRI.PollInterval)
	assert.Equal(t, "storage", cfg.Storage.BasePath)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, int32(10), cfg.DB.MaxConns)
	assert.Equal(t, int32(1), cfg.DB.MinConns)
	assert.Equal(t, "America/Guayaquil", cfg.DB.TimeZone)
	require.NoError(t, cfg.Validate())
}

func TestFromViper_Duraciones(t *testing.T) {
	v := viper.New()
	v.Set("SRI_TIMEOUT", "45")
	v.Set("SRI_POLL_INTERVAL", "1500ms")
	v.Set("SRI_POLL_ATTEMPTS", "5")

	cfg := config.FromViper(v)
	assert.Equal(t, 45*time.Second, cfg.SRI.Timeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.SRI.PollInterval)
	assert.Equal(t, 5, cfg.SRI.PollAttempts)
}

func TestValidate_SinFirmaEnProduccion_Rechazado(t *testing.T) {
	v := viper.New()
	v.Set("SRI_ENVIRONMENT", "2")
	v.Set("SRI_SIGNING_MODE", "unsigned")

	err := config.FromViper(v).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsigned")
}

func TestValidate_SinFirmaEnPruebas_Permitido(t *testing.T) {
	v := viper.New()
	v.Set("SRI_SIGNING_MODE", "unsigned")

	assert.NoError(t, config.FromViper(v).Validate())
}

func TestValidate_ValoresInvalidos(t *testing.T) {
	cases := map[string]func(v *viper.Viper){
		"ambiente desconocido": func(v *viper.Viper) { v.Set("SRI_ENVIRONMENT", "3") },
		"modo desconocido":     func(v *viper.Viper) { v.Set("SRI_SIGNING_MODE", "opcional") },
		"sin intentos":         func(v *viper.Viper) { v.Set("SRI_POLL_ATTEMPTS", "0") },
		"sin ruta de archivo":  func(v *viper.Viper) { v.Set("STORAGE_BASE_PATH", " ") },
		"pool invertido":       func(v *viper.Viper) { v.Set("DB_MIN_CONNS", "20") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			mutate(v)
			assert.Error(t, config.FromViper(v).Validate())
		})
	}
}

func TestDBConfig_DSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:word", DBName: "sri", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aword@db:5432/sri?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
