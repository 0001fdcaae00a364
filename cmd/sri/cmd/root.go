// Package cmd herramienta de línea de comandos para operar la facturación
// electrónica SRI sin levantar la API: claves de acceso, certificados, firma,
// conectividad y tokens de servicio.
package cmd

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	timeNow = time.Now
)

// NewRootCmd construye el árbol de comandos completo.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sri",
		Short: "Herramientas de facturación electrónica SRI (Ecuador)",
		Long: `sri agrupa utilidades operativas del emisor electrónico.

Ejemplos:
  # Generar una clave de acceso
  sri accesskey generate --ruc 0190329773001 --fecha 2024-12-05 --secuencial 42 --codigo 12345678

  # Validar y descomponer una clave
  sri accesskey validate 0512202401019032977300110010010000000421234567814

  # Revisar el certificado de firma
  sri cert info --cert firma.p12 --password secreto

  # Firmar y verificar un comprobante
  sri sign factura.xml --cert firma.p12 --password secreto -o factura_firmada.xml
  sri verify factura_firmada.xml

  # Conectividad con los servicios web del SRI (usa SRI_ENVIRONMENT)
  sri ping`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newAccessKeyCmd(),
		newCertCmd(),
		newSignCmd(),
		newVerifyCmd(),
		newPingCmd(),
		newTokenCmd(),
	)
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
