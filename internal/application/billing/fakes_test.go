package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
	infrasri "github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/sri/signer"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/storage"
)

// ──────────────────────────────────────────────────────────────────────────────
// Almacén en memoria con transacciones (snapshot / restore)
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	txMu sync.Mutex // serializa transacciones, como el bloqueo de fila del UPDATE
	mu   sync.Mutex

	profile  *entity.IssuerProfile
	invoices map[string]entity.Invoice
	items    map[string][]entity.InvoiceItem
	payments map[string][]entity.InvoicePayment
	fields   map[string][]entity.AdditionalField
	logs     []entity.AuthorizationRecord

	failAppend error // si no es nil, Append falla
}

func newMemStore(profile *entity.IssuerProfile) *memStore {
	return &memStore{
		profile:  profile,
		invoices: map[string]entity.Invoice{},
		items:    map[string][]entity.InvoiceItem{},
		payments: map[string][]entity.InvoicePayment{},
		fields:   map[string][]entity.AdditionalField{},
	}
}

type memSnapshot struct {
	profile  *entity.IssuerProfile
	invoices map[string]entity.Invoice
	items    map[string][]entity.InvoiceItem
	payments map[string][]entity.InvoicePayment
	fields   map[string][]entity.AdditionalField
	logs     []entity.AuthorizationRecord
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		invoices: make(map[string]entity.Invoice, len(s.invoices)),
		items:    make(map[string][]entity.InvoiceItem, len(s.items)),
		payments: make(map[string][]entity.InvoicePayment, len(s.payments)),
		fields:   make(map[string][]entity.AdditionalField, len(s.fields)),
		logs:     append([]entity.AuthorizationRecord(nil), s.logs...),
	}
	if s.profile != nil {
		p := *s.profile
		snap.profile = &p
	}
	for k, v := range s.invoices {
		snap.invoices[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = v
	}
	for k, v := range s.payments {
		snap.payments[k] = v
	}
	for k, v := range s.fields {
		snap.fields[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = snap.profile
	s.invoices = snap.invoices
	s.items = snap.items
	s.payments = snap.payments
	s.fields = snap.fields
	s.logs = snap.logs
}

func (s *memStore) currentSequence() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.CurrentSequence
}

func (s *memStore) invoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

// events eventos de la bitácora de la factura, en orden.
func (s *memStore) events(invoiceID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.logs {
		if r.InvoiceID == invoiceID {
			out = append(out, r.Event)
		}
	}
	return out
}

func (s *memStore) stored(invoiceID string) entity.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices[invoiceID]
}

// ── TxRunner ──────────────────────────────────────────────────────────────────

type memTxRunner struct{ store *memStore }

func (r *memTxRunner) RunInvoicing(ctx context.Context, fn func(
	profileRepo repository.IssuerProfileRepository,
	invoiceRepo repository.InvoiceRepository,
	logRepo repository.AuthorizationLogRepository,
) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()
	snap := r.store.snapshot()
	if err := fn(&memProfileRepo{r.store}, &memInvoiceRepo{r.store}, &memLogRepo{r.store}); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

// ── IssuerProfileRepository ───────────────────────────────────────────────────

type memProfileRepo struct{ s *memStore }

func (r *memProfileRepo) GetActive(ctx context.Context) (*entity.IssuerProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.profile == nil {
		return nil, nil
	}
	p := *r.s.profile
	return &p, nil
}

func (r *memProfileRepo) NextSequence(ctx context.Context) (*entity.IssuerProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.profile == nil {
		return nil, domain.ErrNoActiveConfig
	}
	r.s.profile.CurrentSequence++
	p := *r.s.profile
	return &p, nil
}

func (r *memProfileRepo) Create(ctx context.Context, p *entity.IssuerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.profile != nil {
		return domain.ErrDuplicate
	}
	cp := *p
	r.s.profile = &cp
	return nil
}

func (r *memProfileRepo) Update(ctx context.Context, p *entity.IssuerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.profile == nil || r.s.profile.ID != p.ID {
		return domain.ErrNotFound
	}
	cp := *p
	cp.CurrentSequence = r.s.profile.CurrentSequence
	r.s.profile = &cp
	return nil
}

// ── InvoiceRepository ─────────────────────────────────────────────────────────

type memInvoiceRepo struct{ s *memStore }

func header(inv *entity.Invoice) entity.Invoice {
	h := *inv
	h.Items, h.Payments, h.AdditionalFields = nil, nil, nil
	return h
}

func (r *memInvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.invoices {
		if existing.AccessKey == inv.AccessKey || existing.Number == inv.Number {
			return domain.ErrDuplicate
		}
	}
	r.s.invoices[inv.ID] = header(inv)
	return nil
}

func (r *memInvoiceRepo) CreateItems(ctx context.Context, invoiceID string, items []*entity.InvoiceItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range items {
		r.s.items[invoiceID] = append(r.s.items[invoiceID], *it)
	}
	return nil
}

func (r *memInvoiceRepo) CreatePayments(ctx context.Context, invoiceID string, payments []*entity.InvoicePayment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range payments {
		r.s.payments[invoiceID] = append(r.s.payments[invoiceID], *p)
	}
	return nil
}

func (r *memInvoiceRepo) CreateAdditionalFields(ctx context.Context, invoiceID string, fields []*entity.AdditionalField) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range fields {
		r.s.fields[invoiceID] = append(r.s.fields[invoiceID], *f)
	}
	return nil
}

func (r *memInvoiceRepo) UpdateElectronicData(ctx context.Context, inv *entity.Invoice, from entity.LifecycleState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.SRIStatus != from {
		return fmt.Errorf("%w: %s pasó a %s", domain.ErrInvalidTransition, inv.ID, stored.SRIStatus)
	}
	for id, existing := range r.s.invoices {
		if id != inv.ID && existing.AccessKey == inv.AccessKey {
			return domain.ErrDuplicate
		}
	}
	r.s.invoices[inv.ID] = header(inv)
	return nil
}

func (r *memInvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *memInvoiceRepo) GetByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.AccessKey == accessKey {
			cp := inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memInvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.InvoiceItem
	for _, it := range r.s.items[invoiceID] {
		cp := it
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memInvoiceRepo) GetPayments(ctx context.Context, invoiceID string) ([]*entity.InvoicePayment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.InvoicePayment
	for _, p := range r.s.payments[invoiceID] {
		cp := p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memInvoiceRepo) GetAdditionalFields(ctx context.Context, invoiceID string) ([]*entity.AdditionalField, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.AdditionalField
	for _, f := range r.s.fields[invoiceID] {
		cp := f
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memInvoiceRepo) matching(f repository.InvoiceFilter) []*entity.Invoice {
	var out []*entity.Invoice
	for _, inv := range r.s.invoices {
		if f.SRIStatus != "" && inv.SRIStatus != f.SRIStatus {
			continue
		}
		if f.From != nil && inv.IssueDate.Before(*f.From) {
			continue
		}
		if f.To != nil && inv.IssueDate.After(*f.To) {
			continue
		}
		cp := inv
		out = append(out, &cp)
	}
	return out
}

func (r *memInvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.matching(f)
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memInvoiceRepo) Count(ctx context.Context, f repository.InvoiceFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.matching(f)), nil
}

func (r *memInvoiceRepo) Statistics(ctx context.Context) (*repository.InvoiceStatistics, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := &repository.InvoiceStatistics{AuthorizedAmount: decimal.Zero}
	for _, inv := range r.s.invoices {
		st.Total++
		switch {
		case inv.SRIStatus == entity.StateAuthorized:
			st.Authorized++
			st.AuthorizedAmount = st.AuthorizedAmount.Add(inv.Total)
		case inv.SRIStatus.IsPending():
			st.Pending++
		case inv.SRIStatus == entity.StateNotAuthorized:
			st.NotAuthorized++
		case inv.SRIStatus == entity.StateError:
			st.Errors++
		}
	}
	return st, nil
}

// ── AuthorizationLogRepository ────────────────────────────────────────────────

type memLogRepo struct{ s *memStore }

func (r *memLogRepo) Append(ctx context.Context, rec *entity.AuthorizationRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAppend != nil {
		return r.s.failAppend
	}
	r.s.logs = append(r.s.logs, *rec)
	return nil
}

func (r *memLogRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.AuthorizationRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.AuthorizationRecord
	for _, rec := range r.s.logs {
		if rec.InvoiceID == invoiceID {
			cp := rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Firma, SRI y archivo simulados
// ──────────────────────────────────────────────────────────────────────────────

const signatureMarker = "<!-- firma de prueba -->"

type fakeSigner struct{ err error }

func (f *fakeSigner) Sign(unsigned []byte) (signer.SignedDocument, error) {
	if f.err != nil {
		return signer.SignedDocument{}, f.err
	}
	out := append(append([]byte(nil), unsigned...), signatureMarker...)
	return signer.SignedDocument{XML: out, Signed: true}, nil
}

// fakeAuthority devuelve las respuestas en orden; la última se repite.
type fakeAuthority struct {
	mu          sync.Mutex
	submits     []infrasri.SubmitOutcome
	auths       []infrasri.AuthorizationOutcome
	submitCalls int
	queryCalls  int
	queriedKeys []string
}

func (f *fakeAuthority) Submit(ctx context.Context, signedXML []byte) infrasri.SubmitOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	return pick(f.submits, f.submitCalls)
}

func (f *fakeAuthority) QueryAuthorization(ctx context.Context, accessKey string) infrasri.AuthorizationOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	f.queriedKeys = append(f.queriedKeys, accessKey)
	return pick(f.auths, f.queryCalls)
}

func (f *fakeAuthority) script(submits []infrasri.SubmitOutcome, auths []infrasri.AuthorizationOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits, f.auths = submits, auths
	f.submitCalls, f.queryCalls = 0, 0
}

func pick[T any](list []T, call int) T {
	var zero T
	if len(list) == 0 {
		return zero
	}
	if call > len(list) {
		return list[len(list)-1]
	}
	return list[call-1]
}

// failingArchive falla al guardar la variante indicada.
type failingArchive struct {
	Archive
	variant storage.Variant
}

func (f *failingArchive) Save(number string, content []byte, variant storage.Variant, date time.Time) (storage.ArchivedFile, error) {
	if variant == f.variant {
		return storage.ArchivedFile{}, fmt.Errorf("%w: disco lleno", domain.ErrArchive)
	}
	return f.Archive.Save(number, content, variant, date)
}

var errBoom = errors.New("boom")
