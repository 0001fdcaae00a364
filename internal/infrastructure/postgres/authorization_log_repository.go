package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
)

var _ repository.AuthorizationLogRepository = (*AuthorizationLogRepo)(nil)

// AuthorizationLogRepo bitácora sri_authorization_log. Solo INSERT y SELECT:
// el trigger de la migración rechaza UPDATE y DELETE.
type AuthorizationLogRepo struct {
	q Querier
}

// NewAuthorizationLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuthorizationLogRepository(q Querier) *AuthorizationLogRepo {
	return &AuthorizationLogRepo{q: q}
}

func (r *AuthorizationLogRepo) Append(ctx context.Context, rec *entity.AuthorizationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO sri_authorization_log
			(id, invoice_id, clave_acceso, evento, estado_sri, numero_autorizacion,
			 fecha_autorizacion, mensaje, xml_request, xml_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	err := r.q.QueryRow(ctx, q,
		rec.ID, rec.InvoiceID, rec.AccessKey, rec.Event, rec.AuthorityStatus,
		nullIfEmpty(rec.AuthorizationNumber), rec.AuthorizationDate,
		nullIfEmpty(rec.Message), nullIfEmpty(rec.XMLRequest), nullIfEmpty(rec.XMLResponse),
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sri_authorization_log: %w", err)
	}
	return nil
}

func (r *AuthorizationLogRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.AuthorizationRecord, error) {
	const q = `
		SELECT id, invoice_id, clave_acceso, evento, estado_sri,
		       numero_autorizacion, fecha_autorizacion, mensaje, xml_request, xml_response, created_at
		FROM sri_authorization_log
		WHERE invoice_id = $1
		ORDER BY seq`
	rows, err := r.q.Query(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list sri_authorization_log: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuthorizationRecord
	for rows.Next() {
		var rec entity.AuthorizationRecord
		var authNumber, message, req, resp *string
		if err := rows.Scan(
			&rec.ID, &rec.InvoiceID, &rec.AccessKey, &rec.Event, &rec.AuthorityStatus,
			&authNumber, &rec.AuthorizationDate, &message, &req, &resp, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sri_authorization_log: %w", err)
		}
		rec.AuthorizationNumber = derefStr(authNumber)
		rec.Message = derefStr(message)
		rec.XMLRequest = derefStr(req)
		rec.XMLResponse = derefStr(resp)
		list = append(list, &rec)
	}
	return list, rows.Err()
}
