package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, numero, secuencial, clave_acceso, version_documento, fecha_emision, ambiente,
	comprador_tipo_id, comprador_id, comprador_razon_social, comprador_direccion,
	comprador_email, comprador_telefono,
	total_sin_impuestos, total_descuento, total_impuestos, importe_total,
	status, estado_sri, mensaje_sri, numero_autorizacion, fecha_autorizacion,
	xml_sin_firma, xml_firmado, xml_autorizado, firmado, checksum_firmado,
	created_at, updated_at`

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO electronic_invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`
	_, err := r.q.Exec(ctx, q,
		inv.ID, inv.Number, inv.Sequence, inv.AccessKey, inv.DocumentVersion, inv.IssueDate, inv.Environment,
		inv.BuyerIDType, inv.BuyerID, inv.BuyerName, inv.BuyerAddress,
		inv.BuyerEmail, inv.BuyerPhone,
		inv.TotalWithoutTax, inv.TotalDiscount, inv.TotalTax, inv.Total,
		inv.Status, string(inv.SRIStatus), nullIfEmpty(inv.SRIMessage), nullIfEmpty(inv.AuthorizationNumber), inv.AuthorizationDate,
		nullIfEmpty(inv.XMLUnsigned), nullIfEmpty(inv.XMLSigned), nullIfEmpty(inv.XMLAuthorized), inv.Signed, nullIfEmpty(inv.SignedChecksum),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número o clave de acceso ya registrados: %v", domain.ErrDuplicate, err)
		}
		return fmt.Errorf("insert electronic_invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) CreateItems(ctx context.Context, invoiceID string, items []*entity.InvoiceItem) error {
	const q = `
		INSERT INTO electronic_invoice_items
			(id, invoice_id, linea, codigo_principal, codigo_auxiliar, descripcion,
			 cantidad, precio_unitario, descuento, codigo_impuesto, codigo_porcentaje,
			 tarifa, precio_total_sin_impuesto, valor_impuesto)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.InvoiceID = invoiceID
		_, err := r.q.Exec(ctx, q,
			it.ID, invoiceID, it.LineNumber, it.MainCode, it.AuxiliaryCode, it.Description,
			it.Quantity, it.UnitPrice, it.Discount, it.TaxCode, it.TaxPercentageCode,
			it.TaxRate, it.Subtotal, it.TaxAmount,
		)
		if err != nil {
			return fmt.Errorf("insert invoice item %d: %w", it.LineNumber, err)
		}
	}
	return nil
}

func (r *InvoiceRepo) CreatePayments(ctx context.Context, invoiceID string, payments []*entity.InvoicePayment) error {
	const q = `
		INSERT INTO electronic_invoice_payments (id, invoice_id, orden, forma_pago, total, plazo, unidad_tiempo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, p := range payments {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.InvoiceID = invoiceID
		if _, err := r.q.Exec(ctx, q, p.ID, invoiceID, i+1, p.Method, p.Total, p.Term, p.TimeUnit); err != nil {
			return fmt.Errorf("insert invoice payment: %w", err)
		}
	}
	return nil
}

func (r *InvoiceRepo) CreateAdditionalFields(ctx context.Context, invoiceID string, fields []*entity.AdditionalField) error {
	const q = `
		INSERT INTO electronic_invoice_additional_info (id, invoice_id, orden, nombre, valor)
		VALUES ($1, $2, $3, $4, $5)`
	for i, f := range fields {
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		f.InvoiceID = invoiceID
		if _, err := r.q.Exec(ctx, q, f.ID, invoiceID, i+1, f.Name, f.Value); err != nil {
			return fmt.Errorf("insert invoice additional info: %w", err)
		}
	}
	return nil
}

// UpdateElectronicData actualiza los datos que cambian por transición de estado
// o por regeneración (número, clave, versión, fecha, XML). El WHERE sobre
// estado_sri hace de compare-and-set entre autorizaciones concurrentes.
func (r *InvoiceRepo) UpdateElectronicData(ctx context.Context, inv *entity.Invoice, from entity.LifecycleState) error {
	const q = `
		UPDATE electronic_invoices
		SET numero              = $2,
		    secuencial          = $3,
		    clave_acceso        = $4,
		    version_documento   = $5,
		    status              = $6,
		    estado_sri          = $7,
		    mensaje_sri         = $8,
		    numero_autorizacion = $9,
		    fecha_autorizacion  = $10,
		    xml_sin_firma       = $11,
		    xml_firmado         = $12,
		    xml_autorizado      = $13,
		    firmado             = $14,
		    checksum_firmado    = $15,
		    fecha_emision       = $16,
		    ambiente            = $17,
		    updated_at          = $18
		WHERE id = $1 AND estado_sri = $19`
	tag, err := r.q.Exec(ctx, q,
		inv.ID,
		inv.Number,
		inv.Sequence,
		inv.AccessKey,
		inv.DocumentVersion,
		inv.Status,
		string(inv.SRIStatus),
		nullIfEmpty(inv.SRIMessage),
		nullIfEmpty(inv.AuthorizationNumber),
		inv.AuthorizationDate,
		nullIfEmpty(inv.XMLUnsigned),
		nullIfEmpty(inv.XMLSigned),
		nullIfEmpty(inv.XMLAuthorized),
		inv.Signed,
		nullIfEmpty(inv.SignedChecksum),
		inv.IssueDate,
		inv.Environment,
		inv.UpdatedAt,
		string(from),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número o clave de acceso ya registrados: %v", domain.ErrDuplicate, err)
		}
		return fmt.Errorf("update electronic_invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleState(ctx, inv.ID, from)
	}
	return nil
}

// staleState explica un UPDATE sin filas: la factura no existe o su estado ya no es from.
func (r *InvoiceRepo) staleState(ctx context.Context, id string, from entity.LifecycleState) error {
	var current string
	err := r.q.QueryRow(ctx, `SELECT estado_sri FROM electronic_invoices WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: factura %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("select estado_sri: %w", err)
	}
	return fmt.Errorf("%w: la factura %s pasó a %s (se esperaba %s)", domain.ErrInvalidTransition, id, current, from)
}

// GetByID obtiene la cabecera por ID; nil, nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM electronic_invoices WHERE id = $1`
	inv, err := scanInvoice(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get electronic_invoice: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepo) GetByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM electronic_invoices WHERE clave_acceso = $1`
	inv, err := scanInvoice(r.q.QueryRow(ctx, q, accessKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get electronic_invoice by clave_acceso: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	const q = `
		SELECT id, invoice_id, linea, codigo_principal, codigo_auxiliar, descripcion,
		       cantidad, precio_unitario, descuento, codigo_impuesto, codigo_porcentaje,
		       tarifa, precio_total_sin_impuesto, valor_impuesto
		FROM electronic_invoice_items WHERE invoice_id = $1 ORDER BY linea`
	rows, err := r.q.Query(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceItem
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.LineNumber, &it.MainCode, &it.AuxiliaryCode, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Discount, &it.TaxCode, &it.TaxPercentageCode,
			&it.TaxRate, &it.Subtotal, &it.TaxAmount,
		); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) GetPayments(ctx context.Context, invoiceID string) ([]*entity.InvoicePayment, error) {
	const q = `
		SELECT id, invoice_id, forma_pago, total, plazo, unidad_tiempo
		FROM electronic_invoice_payments WHERE invoice_id = $1 ORDER BY orden`
	rows, err := r.q.Query(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice payments: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoicePayment
	for rows.Next() {
		var p entity.InvoicePayment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Method, &p.Total, &p.Term, &p.TimeUnit); err != nil {
			return nil, fmt.Errorf("scan invoice payment: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) GetAdditionalFields(ctx context.Context, invoiceID string) ([]*entity.AdditionalField, error) {
	const q = `
		SELECT id, invoice_id, nombre, valor
		FROM electronic_invoice_additional_info WHERE invoice_id = $1 ORDER BY orden`
	rows, err := r.q.Query(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice additional info: %w", err)
	}
	defer rows.Close()
	var list []*entity.AdditionalField
	for rows.Next() {
		var f entity.AdditionalField
		if err := rows.Scan(&f.ID, &f.InvoiceID, &f.Name, &f.Value); err != nil {
			return nil, fmt.Errorf("scan invoice additional info: %w", err)
		}
		list = append(list, &f)
	}
	return list, rows.Err()
}

// List devuelve cabeceras (sin XML) ordenadas de la más reciente a la más antigua.
func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	where, args := invoiceWhere(f)
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	q := fmt.Sprintf(`
		SELECT id, numero, secuencial, clave_acceso, version_documento, fecha_emision, ambiente,
		       comprador_tipo_id, comprador_id, comprador_razon_social,
		       importe_total, status, estado_sri, COALESCE(mensaje_sri, ''),
		       COALESCE(numero_autorizacion, ''), fecha_autorizacion, created_at, updated_at
		FROM electronic_invoices
		%s
		ORDER BY fecha_emision DESC, secuencial DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list electronic_invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		var inv entity.Invoice
		var state string
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.Sequence, &inv.AccessKey, &inv.DocumentVersion, &inv.IssueDate, &inv.Environment,
			&inv.BuyerIDType, &inv.BuyerID, &inv.BuyerName,
			&inv.Total, &inv.Status, &state, &inv.SRIMessage,
			&inv.AuthorizationNumber, &inv.AuthorizationDate, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan electronic_invoice: %w", err)
		}
		inv.SRIStatus = entity.LifecycleState(state)
		list = append(list, &inv)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) Count(ctx context.Context, f repository.InvoiceFilter) (int, error) {
	where, args := invoiceWhere(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM electronic_invoices `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count electronic_invoices: %w", err)
	}
	return n, nil
}

func (r *InvoiceRepo) Statistics(ctx context.Context) (*repository.InvoiceStatistics, error) {
	const q = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE estado_sri = 'AUTHORIZED'),
		       COUNT(*) FILTER (WHERE estado_sri IN ('GENERATED', 'SUBMITTED', 'RECEIVED')),
		       COUNT(*) FILTER (WHERE estado_sri = 'NOT_AUTHORIZED'),
		       COUNT(*) FILTER (WHERE estado_sri = 'ERROR'),
		       COALESCE(SUM(importe_total) FILTER (WHERE estado_sri = 'AUTHORIZED'), 0)
		FROM electronic_invoices`
	var st repository.InvoiceStatistics
	err := r.q.QueryRow(ctx, q).Scan(
		&st.Total, &st.Authorized, &st.Pending, &st.NotAuthorized, &st.Errors, &st.AuthorizedAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("electronic_invoices statistics: %w", err)
	}
	return &st, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func invoiceWhere(f repository.InvoiceFilter) (string, []any) {
	var conds []string
	var args []any
	if f.SRIStatus != "" {
		args = append(args, string(f.SRIStatus))
		conds = append(conds, fmt.Sprintf("estado_sri = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("fecha_emision >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("fecha_emision <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanInvoice(row pgxScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var state string
	var message, authNumber, xmlUnsigned, xmlSigned, xmlAuthorized, checksum *string
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.Sequence, &inv.AccessKey, &inv.DocumentVersion, &inv.IssueDate, &inv.Environment,
		&inv.BuyerIDType, &inv.BuyerID, &inv.BuyerName, &inv.BuyerAddress,
		&inv.BuyerEmail, &inv.BuyerPhone,
		&inv.TotalWithoutTax, &inv.TotalDiscount, &inv.TotalTax, &inv.Total,
		&inv.Status, &state, &message, &authNumber, &inv.AuthorizationDate,
		&xmlUnsigned, &xmlSigned, &xmlAuthorized, &inv.Signed, &checksum,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.SRIStatus = entity.LifecycleState(state)
	inv.SRIMessage = derefStr(message)
	inv.AuthorizationNumber = derefStr(authNumber)
	inv.XMLUnsigned = derefStr(xmlUnsigned)
	inv.XMLSigned = derefStr(xmlSigned)
	inv.XMLAuthorized = derefStr(xmlAuthorized)
	inv.SignedChecksum = derefStr(checksum)
	return &inv, nil
}
