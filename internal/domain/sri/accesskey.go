// Package sri: clave de acceso de 49 dígitos para comprobantes electrónicos del SRI (Ecuador).
// Estructura fija: fecha + tipo de comprobante + RUC + ambiente + serie + secuencial +
// código numérico + tipo de emisión, más un dígito verificador módulo 11.

package sri

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Eridaras/SistemaMedico/internal/domain"
)

// Longitudes de cada campo de la clave de acceso (Ficha Técnica SRI).
const (
	AccessKeyLength     = 49
	AccessKeyBaseLength = 48

	lenDate          = 8
	lenDocType       = 2
	lenRUC           = 13
	lenEnvironment   = 1
	lenEstablishment = 3
	lenPointOfSale   = 3
	lenSequence      = 9
	lenNumericCode   = 8
	lenEmissionType  = 1

	MaxSequence = 999_999_999
)

// pesos módulo 11 aplicados de derecha a izquierda, en ciclo.
var mod11Weights = [6]int{2, 3, 4, 5, 6, 7}

// AccessKeyParams datos de entrada de la clave de acceso.
type AccessKeyParams struct {
	IssueDate     time.Time // fecha de emisión (se usa día/mes/año local)
	DocumentType  string    // "01" = factura
	RUC           string    // RUC del emisor (13 dígitos)
	Environment   string    // "1" = pruebas, "2" = producción
	Establishment string    // código de establecimiento (3 dígitos)
	PointOfSale   string    // punto de emisión (3 dígitos)
	Sequence      int64     // secuencial del comprobante (1..999999999)
	NumericCode   string    // código numérico del emisor (8 dígitos)
	EmissionType  string    // "1" = emisión normal
}

// AccessKeyParts descomposición de una clave de acceso ya generada.
type AccessKeyParts struct {
	IssueDate     time.Time
	DocumentType  string
	RUC           string
	Environment   string
	Establishment string
	PointOfSale   string
	Sequence      int64
	NumericCode   string
	EmissionType  string
	CheckDigit    int
}

// GenerateAccessKey construye la clave de acceso de 49 dígitos.
// Cualquier campo con ancho o contenido inválido es un error del llamador.
func GenerateAccessKey(p AccessKeyParams) (string, error) {
	base, err := BuildAccessKeyBase(p)
	if err != nil {
		return "", err
	}
	dv, err := Modulo11(base)
	if err != nil {
		return "", err
	}
	return base + strconv.Itoa(dv), nil
}

// BuildAccessKeyBase arma los 48 dígitos previos al dígito verificador.
func BuildAccessKeyBase(p AccessKeyParams) (string, error) {
	if p.IssueDate.IsZero() {
		return "", fmt.Errorf("%w: fecha de emisión requerida", domain.ErrInvalidAccessKey)
	}
	if p.Sequence < 1 || p.Sequence > MaxSequence {
		return "", fmt.Errorf("%w: secuencial fuera de rango (%d)", domain.ErrInvalidAccessKey, p.Sequence)
	}
	fields := []struct {
		name  string
		value string
		width int
	}{
		{"tipo de comprobante", p.DocumentType, lenDocType},
		{"RUC", p.RUC, lenRUC},
		{"ambiente", p.Environment, lenEnvironment},
		{"establecimiento", p.Establishment, lenEstablishment},
		{"punto de emisión", p.PointOfSale, lenPointOfSale},
		{"código numérico", p.NumericCode, lenNumericCode},
		{"tipo de emisión", p.EmissionType, lenEmissionType},
	}
	for _, f := range fields {
		if len(f.value) != f.width || !isDigits(f.value) {
			return "", fmt.Errorf("%w: %s debe tener %d dígitos, se recibió %q",
				domain.ErrInvalidAccessKey, f.name, f.width, f.value)
		}
	}

	var sb strings.Builder
	sb.Grow(AccessKeyBaseLength)
	sb.WriteString(p.IssueDate.Format("02012006"))
	sb.WriteString(p.DocumentType)
	sb.WriteString(p.RUC)
	sb.WriteString(p.Environment)
	sb.WriteString(p.Establishment)
	sb.WriteString(p.PointOfSale)
	sb.WriteString(fmt.Sprintf("%09d", p.Sequence))
	sb.WriteString(p.NumericCode)
	sb.WriteString(p.EmissionType)
	return sb.String(), nil
}

// Modulo11 calcula el dígito verificador: pesos 2..7 de derecha a izquierda,
// 11 - (suma mod 11); 11 se convierte en 0 y 10 en 1.
func Modulo11(base string) (int, error) {
	if base == "" || !isDigits(base) {
		return 0, fmt.Errorf("%w: la base del módulo 11 debe ser numérica", domain.ErrInvalidAccessKey)
	}
	sum := 0
	w := 0
	for i := len(base) - 1; i >= 0; i-- {
		sum += int(base[i]-'0') * mod11Weights[w]
		w = (w + 1) % len(mod11Weights)
	}
	dv := 11 - sum%11
	switch dv {
	case 11:
		return 0, nil
	case 10:
		return 1, nil
	default:
		return dv, nil
	}
}

// ValidateAccessKey comprueba longitud, contenido numérico y dígito verificador.
func ValidateAccessKey(key string) error {
	if len(key) != AccessKeyLength {
		return fmt.Errorf("%w: se esperaban %d dígitos, se recibieron %d", domain.ErrInvalidAccessKey, AccessKeyLength, len(key))
	}
	if !isDigits(key) {
		return fmt.Errorf("%w: contiene caracteres no numéricos", domain.ErrInvalidAccessKey)
	}
	expected, err := Modulo11(key[:AccessKeyBaseLength])
	if err != nil {
		return err
	}
	if got := int(key[AccessKeyBaseLength] - '0'); got != expected {
		return fmt.Errorf("%w: dígito verificador esperado %d, recibido %d", domain.ErrInvalidAccessKey, expected, got)
	}
	return nil
}

// ParseAccessKey valida y descompone la clave en sus campos.
func ParseAccessKey(key string) (*AccessKeyParts, error) {
	if err := ValidateAccessKey(key); err != nil {
		return nil, err
	}
	date, err := time.Parse("02012006", key[:lenDate])
	if err != nil {
		return nil, fmt.Errorf("%w: fecha inválida: %v", domain.ErrInvalidAccessKey, err)
	}
	pos := lenDate
	next := func(n int) string {
		s := key[pos : pos+n]
		pos += n
		return s
	}
	parts := &AccessKeyParts{IssueDate: date}
	parts.DocumentType = next(lenDocType)
	parts.RUC = next(lenRUC)
	parts.Environment = next(lenEnvironment)
	parts.Establishment = next(lenEstablishment)
	parts.PointOfSale = next(lenPointOfSale)
	seq, _ := strconv.ParseInt(next(lenSequence), 10, 64)
	parts.Sequence = seq
	parts.NumericCode = next(lenNumericCode)
	parts.EmissionType = next(lenEmissionType)
	parts.CheckDigit = int(key[AccessKeyBaseLength] - '0')
	return parts, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
