package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eridaras/SistemaMedico/internal/application/billing"
	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
)

var _ billing.InvoicingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInvoicing inicia una transacción, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback. El secuencial que tome fn solo queda consumido si hay Commit.
func (r *TxRunner) RunInvoicing(ctx context.Context, fn func(
	profileRepo repository.IssuerProfileRepository,
	invoiceRepo repository.InvoiceRepository,
	logRepo repository.AuthorizationLogRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	profileRepo := NewIssuerProfileRepository(tx)
	invoiceRepo := NewInvoiceRepository(tx)
	logRepo := NewAuthorizationLogRepository(tx)

	if err := fn(profileRepo, invoiceRepo, logRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
