package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrUnauthorized   = errors.New("no autorizado")
	ErrForbidden      = errors.New("acceso denegado")
	ErrNoActiveConfig = errors.New("no existe configuración SRI activa")
)

// Errores del generador de clave de acceso.
var (
	ErrInvalidAccessKey = errors.New("clave de acceso inválida")
)

// Errores de firma electrónica. Se reportan aparte del modo sin firma.
var (
	ErrSigningConfig          = errors.New("configuración de firma electrónica inválida")
	ErrCertificateExpired     = errors.New("certificado de firma caducado")
	ErrCertificateNotYetValid = errors.New("certificado de firma aún no vigente")
	ErrSignatureInvalid       = errors.New("firma electrónica inválida")
)

// Errores del protocolo con el SRI.
var (
	ErrAuthorityFault = errors.New("falla reportada por el servicio del SRI")
	ErrTransport      = errors.New("falla de comunicación con el SRI")
)

// Errores del ciclo de vida del comprobante.
var (
	ErrAlreadyAuthorized    = errors.New("la factura ya está autorizada por el SRI")
	ErrInvalidTransition    = errors.New("transición de estado no permitida")
	ErrRegenerationRequired = errors.New("la factura requiere un nuevo comprobante con otro secuencial")
)

// Errores del archivo de comprobantes.
var (
	ErrArchive          = errors.New("error en el archivo de comprobantes")
	ErrArchiveConflict  = errors.New("ya existe un comprobante autorizado distinto")
	ErrChecksumMismatch = errors.New("el checksum del comprobante no coincide")
)
