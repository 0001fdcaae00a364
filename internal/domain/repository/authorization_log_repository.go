package repository

import (
	"context"

	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
)

// AuthorizationLogRepository bitácora append-only de la interacción con el SRI.
type AuthorizationLogRepository interface {
	Append(ctx context.Context, rec *entity.AuthorizationRecord) error
	// ListByInvoice devuelve los registros en orden de inserción.
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.AuthorizationRecord, error)
}
