package entity

import (
	"fmt"
	"time"
)

// IssuerProfile representa la configuración SRI del emisor (tabla sri_configuration).
// Solo una fila activa a la vez; CurrentSequence es la única fuente de secuenciales
// y únicamente se incrementa de forma atómica en la capa de persistencia.
type IssuerProfile struct {
	ID                   string
	RUC                  string // RUC del emisor (13 dígitos)
	LegalName            string // Razón social
	TradeName            string // Nombre comercial
	MainAddress          string // Dirección matriz
	EstablishmentAddress string // Dirección del establecimiento (vacío = matriz)
	Establishment        string // Código de establecimiento (ej: "001")
	PointOfSale          string // Punto de emisión (ej: "001")
	Environment          string // "1" = pruebas, "2" = producción
	EmissionType         string // "1" = normal
	NumericCode          string // Código numérico de 8 dígitos para la clave de acceso
	CurrentSequence      int64  // Último secuencial emitido
	RequiredAccounting   bool   // Obligado a llevar contabilidad
	SpecialTaxpayer      string // Número de resolución de contribuyente especial (opcional)
	Email                string
	Phone                string
	CertificatePath      string // Ruta del .p12 del emisor (opcional, prevalece la config global)
	CertificatePassword  string
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// InvoiceNumber devuelve el número legible estab-pto-secuencial (ej: 001-001-000000042).
func (p *IssuerProfile) InvoiceNumber(sequence int64) string {
	return fmt.Sprintf("%s-%s-%09d", p.Establishment, p.PointOfSale, sequence)
}

// EstablishmentAddressOrMain dirección del establecimiento, o la matriz si no se configuró.
func (p *IssuerProfile) EstablishmentAddressOrMain() string {
	if p.EstablishmentAddress != "" {
		return p.EstablishmentAddress
	}
	return p.MainAddress
}

// AccountingFlag valor SI/NO del campo obligadoContabilidad.
func (p *IssuerProfile) AccountingFlag() string {
	if p.RequiredAccounting {
		return "SI"
	}
	return "NO"
}
