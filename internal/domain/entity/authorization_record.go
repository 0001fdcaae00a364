package entity

import "time"

// Eventos registrados en la bitácora de autorización.
const (
	EventGenerated     = "GENERATED"
	EventRegenerated   = "REGENERATED"
	EventReceived      = "RECEIVED"
	EventReturned      = "RETURNED"
	EventAuthorized    = "AUTHORIZED"
	EventNotAuthorized = "NOT_AUTHORIZED"
	EventInProcess     = "IN_PROCESS"
	EventFault         = "FAULT"
)

// AuthorizationRecord fila de sri_authorization_log. Solo se inserta; nunca se
// actualiza ni se elimina.
type AuthorizationRecord struct {
	ID                  string
	InvoiceID           string
	AccessKey           string
	Event               string // EventGenerated, EventReceived, ...
	AuthorityStatus     string // estado literal del SRI (RECIBIDA, DEVUELTA, AUTORIZADO, ...)
	AuthorizationNumber string
	AuthorizationDate   *time.Time
	Message             string
	XMLRequest          string
	XMLResponse         string
	CreatedAt           time.Time
}

// AuthorityMessage mensaje itemizado devuelto por el SRI.
type AuthorityMessage struct {
	Identifier     string `json:"identificador"`
	Message        string `json:"mensaje"`
	AdditionalInfo string `json:"informacionAdicional,omitempty"`
	Type           string `json:"tipo"` // ERROR | ADVERTENCIA | INFORMATIVO
}
