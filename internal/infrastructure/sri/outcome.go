package sri

import (
	"fmt"
	"time"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
)

// ── Variantes de respuesta ────────────────────────────────────────────────────

// SubmitStatus resultado de la recepción.
type SubmitStatus string

const (
	SubmitReceived SubmitStatus = "RECIBIDA"
	SubmitReturned SubmitStatus = "DEVUELTA"
	SubmitFault    SubmitStatus = "FAULT"
)

// SubmitOutcome respuesta normalizada de validarComprobante.
// Messages solo aplica a Returned (y a veces a Received con advertencias); Fault solo a SubmitFault.
type SubmitOutcome struct {
	Status      SubmitStatus
	Messages    []entity.AuthorityMessage
	Fault       *Fault
	RawRequest  string
	RawResponse string
}

// AuthorizationStatus resultado de la consulta de autorización.
type AuthorizationStatus string

const (
	AuthorizationAuthorized    AuthorizationStatus = "AUTORIZADO"
	AuthorizationNotAuthorized AuthorizationStatus = "NO AUTORIZADO"
	AuthorizationInProcess     AuthorizationStatus = "EN PROCESO"
	AuthorizationFault         AuthorizationStatus = "FAULT"
)

// AuthorizationOutcome respuesta normalizada de autorizacionComprobante.
type AuthorizationOutcome struct {
	Status              AuthorizationStatus
	AuthorizationNumber string     // solo Authorized
	AuthorizationDate   *time.Time // solo Authorized
	Environment         string     // PRUEBAS | PRODUCCIÓN, tal como lo devuelve el SRI
	Document            string     // copia del comprobante devuelta por el SRI
	Messages            []entity.AuthorityMessage
	Fault               *Fault
	RawRequest          string
	RawResponse         string
}

// ── Fallas ────────────────────────────────────────────────────────────────────

// FaultKind distingue fallas reintentables (red, timeout) de las de protocolo.
type FaultKind string

const (
	FaultTransport FaultKind = "TRANSPORT"
	FaultTimeout   FaultKind = "TIMEOUT"
	FaultProtocol  FaultKind = "PROTOCOL"
	// FaultOversized la respuesta supera el límite de lectura y no se interpreta.
	FaultOversized FaultKind = "OVERSIZED"
)

// Fault falla normalizada de un intercambio con el SRI. Conserva la causa original.
type Fault struct {
	Kind    FaultKind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap permite errors.Is contra domain.ErrTransport / domain.ErrAuthorityFault y contra la causa.
func (f *Fault) Unwrap() []error {
	errs := []error{f.sentinel()}
	if f.Cause != nil {
		errs = append(errs, f.Cause)
	}
	return errs
}

// Retryable indica si el estado local puede quedarse igual y reintentarse.
func (f *Fault) Retryable() bool {
	return f.Kind == FaultTransport || f.Kind == FaultTimeout
}

func (f *Fault) sentinel() error {
	if f.Retryable() {
		return domain.ErrTransport
	}
	return domain.ErrAuthorityFault
}

func protocolFault(msg string, cause error) *Fault {
	return &Fault{Kind: FaultProtocol, Message: msg, Cause: cause}
}
