// Package sri implementa la generación del XML de factura electrónica y el
// cliente de los servicios web offline del SRI (Ecuador).
package sri

import (
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	domainsri "github.com/Eridaras/SistemaMedico/internal/domain/sri"
)

// InvoiceBuildContext contexto con todos los datos necesarios para construir el XML de la factura.
type InvoiceBuildContext struct {
	Profile *entity.IssuerProfile // Emisor (infoTributaria)
	Invoice *entity.Invoice       // Cabecera con clave de acceso, comprador, ítems, pagos y campos adicionales
	Totals  domainsri.Totals      // Totales agrupados por tarifa
}
