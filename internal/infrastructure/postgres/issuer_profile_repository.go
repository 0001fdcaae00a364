package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
)

var _ repository.IssuerProfileRepository = (*IssuerProfileRepo)(nil)

// IssuerProfileRepo implementa IssuerProfileRepository sobre sri_configuration.
type IssuerProfileRepo struct {
	q Querier
}

// NewIssuerProfileRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIssuerProfileRepository(q Querier) *IssuerProfileRepo {
	return &IssuerProfileRepo{q: q}
}

const issuerProfileColumns = `
	id, ruc, razon_social, nombre_comercial, dir_matriz, dir_establecimiento,
	establecimiento, punto_emision, ambiente, tipo_emision, codigo_numerico,
	secuencial_actual, obligado_contabilidad, contribuyente_especial,
	email, telefono, cert_path, cert_password, active, created_at, updated_at`

func (r *IssuerProfileRepo) GetActive(ctx context.Context) (*entity.IssuerProfile, error) {
	q := `SELECT ` + issuerProfileColumns + ` FROM sri_configuration WHERE active LIMIT 1`
	p, err := scanIssuerProfile(r.q.QueryRow(ctx, q))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active sri_configuration: %w", err)
	}
	return p, nil
}

// NextSequence es el único punto donde se asigna un secuencial. El UPDATE toma
// el lock de la fila, así que las transacciones concurrentes se serializan y
// cada una recibe un valor distinto.
func (r *IssuerProfileRepo) NextSequence(ctx context.Context) (*entity.IssuerProfile, error) {
	q := `
		UPDATE sri_configuration
		SET secuencial_actual = secuencial_actual + 1, updated_at = now()
		WHERE active
		RETURNING ` + issuerProfileColumns
	p, err := scanIssuerProfile(r.q.QueryRow(ctx, q))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveConfig
		}
		return nil, fmt.Errorf("next sequence: %w", err)
	}
	return p, nil
}

func (r *IssuerProfileRepo) Create(ctx context.Context, p *entity.IssuerProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO sri_configuration
			(id, ruc, razon_social, nombre_comercial, dir_matriz, dir_establecimiento,
			 establecimiento, punto_emision, ambiente, tipo_emision, codigo_numerico,
			 secuencial_actual, obligado_contabilidad, contribuyente_especial,
			 email, telefono, cert_path, cert_password, active, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now(), now())`
	_, err := r.q.Exec(ctx, q,
		p.ID, p.RUC, p.LegalName, p.TradeName, p.MainAddress, p.EstablishmentAddress,
		p.Establishment, p.PointOfSale, p.Environment, p.EmissionType, p.NumericCode,
		p.CurrentSequence, p.RequiredAccounting, p.SpecialTaxpayer,
		p.Email, p.Phone, p.CertificatePath, p.CertificatePassword, p.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe una configuración SRI activa", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert sri_configuration: %w", err)
	}
	return nil
}

// Update no incluye secuencial_actual: solo NextSequence lo modifica.
func (r *IssuerProfileRepo) Update(ctx context.Context, p *entity.IssuerProfile) error {
	const q = `
		UPDATE sri_configuration
		SET ruc = $2, razon_social = $3, nombre_comercial = $4, dir_matriz = $5,
		    dir_establecimiento = $6, establecimiento = $7, punto_emision = $8,
		    ambiente = $9, tipo_emision = $10, codigo_numerico = $11,
		    obligado_contabilidad = $12, contribuyente_especial = $13,
		    email = $14, telefono = $15, cert_path = $16, cert_password = $17,
		    updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		p.ID, p.RUC, p.LegalName, p.TradeName, p.MainAddress,
		p.EstablishmentAddress, p.Establishment, p.PointOfSale,
		p.Environment, p.EmissionType, p.NumericCode,
		p.RequiredAccounting, p.SpecialTaxpayer,
		p.Email, p.Phone, p.CertificatePath, p.CertificatePassword,
	)
	if err != nil {
		return fmt.Errorf("update sri_configuration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanIssuerProfile(row pgxScanner) (*entity.IssuerProfile, error) {
	var p entity.IssuerProfile
	err := row.Scan(
		&p.ID, &p.RUC, &p.LegalName, &p.TradeName, &p.MainAddress, &p.EstablishmentAddress,
		&p.Establishment, &p.PointOfSale, &p.Environment, &p.EmissionType, &p.NumericCode,
		&p.CurrentSequence, &p.RequiredAccounting, &p.SpecialTaxpayer,
		&p.Email, &p.Phone, &p.CertificatePath, &p.CertificatePassword, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
