package entity

// LifecycleState estado del comprobante frente al SRI (columna estado_sri).
type LifecycleState string

const (
	StateDraft         LifecycleState = "DRAFT"          // Borrador, sin clave de acceso
	StateGenerated     LifecycleState = "GENERATED"      // XML generado, firmado y archivado
	StateSubmitted     LifecycleState = "SUBMITTED"      // Enviado a recepción, sin respuesta
	StateReceived      LifecycleState = "RECEIVED"       // RECIBIDA por el SRI, pendiente de autorización
	StateAuthorized    LifecycleState = "AUTHORIZED"     // AUTORIZADO (terminal)
	StateNotAuthorized LifecycleState = "NOT_AUTHORIZED" // NO AUTORIZADO (terminal para la clave)
	StateError         LifecycleState = "ERROR"          // DEVUELTA o falla del SRI en este intento
)

// transitions tabla de transiciones válidas. Reintentar desde SUBMITTED o RECEIVED
// no cambia de estado; ERROR y NOT_AUTHORIZED solo salen regenerando el comprobante.
var transitions = map[LifecycleState][]LifecycleState{
	StateDraft:         {StateGenerated},
	StateGenerated:     {StateSubmitted},
	StateSubmitted:     {StateSubmitted, StateReceived, StateError},
	StateReceived:      {StateReceived, StateAuthorized, StateNotAuthorized},
	StateError:         {StateGenerated},
	StateNotAuthorized: {StateGenerated},
	StateAuthorized:    {},
}

// CanTransitionTo indica si el cambio de estado está permitido.
func (s LifecycleState) CanTransitionTo(next LifecycleState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal estados que ya no admiten envío con la misma clave de acceso.
func (s LifecycleState) IsTerminal() bool {
	return s == StateAuthorized || s == StateNotAuthorized || s == StateError
}

// IsPending estados en trámite con el SRI.
func (s LifecycleState) IsPending() bool {
	return s == StateGenerated || s == StateSubmitted || s == StateReceived
}

// Valid indica si el valor pertenece al conjunto cerrado de estados.
func (s LifecycleState) Valid() bool {
	_, ok := transitions[s]
	return ok
}
