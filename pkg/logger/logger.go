// Package logger arma el zerolog de la aplicación y los subloggers que usan
// los componentes de facturación.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Campos comunes en las líneas de facturación.
const (
	FieldComponent   = "component"
	FieldInvoiceID   = "invoice_id"
	FieldAccessKey   = "clave_acceso"
	FieldService     = "service"
	FieldSRIAmbiente = "ambiente_sri"
)

// Config opciones para el logger.
type Config struct {
	Env            string    // development -> consola legible; cualquier otro -> JSON
	Level          string    // trace, debug, info, warn, error
	Service        string    // nombre de la aplicación
	SRIEnvironment string    // "1" pruebas, "2" producción
	Output         io.Writer // nil = os.Stdout
}

// Logger wrapper sobre zerolog para inyección y consistencia.
type Logger struct {
	zl zerolog.Logger
}

// New crea el logger de la aplicación. Un LOG_LEVEL no reconocido deja info y
// queda registrado como advertencia.
func New(cfg Config) *Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	level, levelErr := ParseLevel(cfg.Level)
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str(FieldService, cfg.Service)
	}
	if cfg.SRIEnvironment != "" {
		ctx = ctx.Str(FieldSRIAmbiente, ambienteName(cfg.SRIEnvironment))
	}
	zl := ctx.Logger()
	if levelErr != nil {
		zl.Warn().Err(levelErr).Msg("LOG_LEVEL ignorado, se usa info")
	}

	// Redirigir el logger global de zerolog para librerías que lo usen
	log.Logger = zl

	return &Logger{zl: zl}
}

// ParseLevel interpreta LOG_LEVEL sin distinguir mayúsculas. Vacío es info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	switch s {
	case "trace", "debug", "info", "warn", "error":
		level, err := zerolog.ParseLevel(s)
		if err == nil {
			return level, nil
		}
	}
	return zerolog.InfoLevel, fmt.Errorf("nivel de log %q no válido (trace, debug, info, warn, error)", s)
}

// Component sublogger de un componente (orquestador, firmador, cliente SOAP).
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

// ForInvoice sublogger con el id de la factura y, si ya existe, su clave de acceso.
func ForInvoice(l zerolog.Logger, invoiceID, accessKey string) zerolog.Logger {
	ctx := l.With().Str(FieldInvoiceID, invoiceID)
	if accessKey != "" {
		ctx = ctx.Str(FieldAccessKey, accessKey)
	}
	return ctx.Logger()
}

func ambienteName(code string) string {
	switch code {
	case "1":
		return "PRUEBAS"
	case "2":
		return "PRODUCCION"
	}
	return code
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Zerolog devuelve el logger interno para inyectarlo en los componentes.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}
