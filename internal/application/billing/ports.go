package billing

import (
	"context"
	"time"

	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
	infrasri "github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/sri/signer"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/storage"
)

// InvoicingTxRunner ejecuta una función dentro de una transacción con los repos de facturación electrónica.
type InvoicingTxRunner interface {
	RunInvoicing(ctx context.Context, fn func(
		profileRepo repository.IssuerProfileRepository,
		invoiceRepo repository.InvoiceRepository,
		logRepo repository.AuthorizationLogRepository,
	) error) error
}

// DocumentSigner firma el XML según el modo configurado (implementado por *signer.DocumentSigner).
type DocumentSigner interface {
	Sign(unsigned []byte) (signer.SignedDocument, error)
}

// AuthorityClient servicios web offline del SRI (implementado por *sri.SOAPClient).
// Nunca devuelve error: las fallas vienen normalizadas dentro del resultado.
type AuthorityClient interface {
	Submit(ctx context.Context, signedXML []byte) infrasri.SubmitOutcome
	QueryAuthorization(ctx context.Context, accessKey string) infrasri.AuthorizationOutcome
}

// Archive archivo legal de comprobantes (implementado por *storage.XMLArchive).
type Archive interface {
	Save(number string, content []byte, variant storage.Variant, date time.Time) (storage.ArchivedFile, error)
	Get(number string, variant storage.Variant, date time.Time) ([]byte, error)
}

// OrchestratorConfig política de consulta de autorización.
type OrchestratorConfig struct {
	PollAttempts int           // consultas mientras el SRI responde EN PROCESO (mínimo 1)
	PollInterval time.Duration // espera entre consultas
}
