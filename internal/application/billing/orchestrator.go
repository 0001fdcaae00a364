package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Eridaras/SistemaMedico/internal/domain"
	"github.com/Eridaras/SistemaMedico/internal/domain/entity"
	"github.com/Eridaras/SistemaMedico/internal/domain/repository"
	domainsri "github.com/Eridaras/SistemaMedico/internal/domain/sri"
	infrasri "github.com/Eridaras/SistemaMedico/internal/infrastructure/sri"
	"github.com/Eridaras/SistemaMedico/internal/infrastructure/storage"
	applog "github.com/Eridaras/SistemaMedico/pkg/logger"
	pkgsri "github.com/Eridaras/SistemaMedico/pkg/sri"
)

// SRIOrchestrator orquesta el ciclo de vida de la factura electrónica:
//
//	secuencial → clave de acceso → XML → firma → archivo → recepción → autorización
//
// Es el único componente que cambia estado_sri. Cada cambio de estado y su
// registro en la bitácora se persisten en la misma transacción.
//
// Todo es síncrono: Authorize bloquea mientras dura el intercambio con el SRI,
// acotado por el timeout del cliente SOAP y por PollAttempts × PollInterval.
type SRIOrchestrator struct {
	tx        InvoicingTxRunner
	invoices  repository.InvoiceRepository
	builder   *infrasri.XMLBuilderService
	signer    DocumentSigner
	authority AuthorityClient
	archive   Archive
	cfg       OrchestratorConfig
	log       zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewSRIOrchestrator construye el orquestador con todas sus dependencias.
// invoices se usa solo para lecturas; las escrituras van por tx.
func NewSRIOrchestrator(
	tx InvoicingTxRunner,
	invoices repository.InvoiceRepository,
	builder *infrasri.XMLBuilderService,
	signer DocumentSigner,
	authority AuthorityClient,
	archive Archive,
	cfg OrchestratorConfig,
	log zerolog.Logger,
) *SRIOrchestrator {
	if cfg.PollAttempts < 1 {
		cfg.PollAttempts = 1
	}
	return &SRIOrchestrator{
		tx:        tx,
		invoices:  invoices,
		builder:   builder,
		signer:    signer,
		authority: authority,
		archive:   archive,
		cfg:       cfg,
		log:       applog.Component(log, "sri_orchestrator"),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// DRAFT → GENERATED
// ═══════════════════════════════════════════════════════════════════════════

// Generate valida el borrador, toma el siguiente secuencial y deja la factura
// GENERATED con su XML firmado y archivado. Si algo falla la transacción se
// revierte y el secuencial no se consume.
func (o *SRIOrchestrator) Generate(ctx context.Context, draft *entity.InvoiceDraft) (*entity.Invoice, error) {
	if err := domainsri.ValidateDraft(draft); err != nil {
		return nil, err
	}
	items, err := domainsri.BuildItems(draft.Items)
	if err != nil {
		return nil, err
	}
	totals := domainsri.ComputeTotals(items)
	payments, err := domainsri.BuildPayments(draft.Payments, totals.Total)
	if err != nil {
		return nil, err
	}

	now := o.now()
	issueDate := draft.IssueDate
	if issueDate.IsZero() {
		issueDate = now
	}

	inv := &entity.Invoice{
		ID:              uuid.New().String(),
		DocumentVersion: 1,
		IssueDate:       truncateDay(issueDate),
		BuyerIDType:     draft.BuyerIDType,
		BuyerID:         draft.BuyerID,
		BuyerName:       draft.BuyerName,
		BuyerAddress:    draft.BuyerAddress,
		BuyerEmail:      draft.BuyerEmail,
		BuyerPhone:      draft.BuyerPhone,
		TotalWithoutTax: totals.TotalWithoutTax,
		TotalDiscount:   totals.TotalDiscount,
		TotalTax:        totals.TotalTax,
		Total:           totals.Total,
		Status:          entity.InvoiceStatusDraft,
		SRIStatus:       entity.StateDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           items,
		Payments:        payments,
	}
	for i := range draft.AdditionalFields {
		f := draft.AdditionalFields[i]
		inv.AdditionalFields = append(inv.AdditionalFields, &entity.AdditionalField{Name: f.Name, Value: f.Value})
	}

	err = o.tx.RunInvoicing(ctx, func(
		profileRepo repository.IssuerProfileRepository,
		invoiceRepo repository.InvoiceRepository,
		logRepo repository.AuthorizationLogRepository,
	) error {
		profile, err := profileRepo.NextSequence(ctx)
		if err != nil {
			return err
		}
		if err := o.produceDocument(inv, profile, totals); err != nil {
			return err
		}
		if err := o.transition(inv, entity.StateGenerated); err != nil {
			return err
		}

		if err := invoiceRepo.Create(ctx, inv); err != nil {
			return err
		}
		if err := invoiceRepo.CreateItems(ctx, inv.ID, inv.Items); err != nil {
			return err
		}
		if err := invoiceRepo.CreatePayments(ctx, inv.ID, inv.Payments); err != nil {
			return err
		}
		if err := invoiceRepo.CreateAdditionalFields(ctx, inv.ID, inv.AdditionalFields); err != nil {
			return err
		}
		if err := o.archiveGenerated(inv); err != nil {
			return err
		}
		return logRepo.Append(ctx, o.record(inv, entity.EventGenerated, "", generatedMessage(inv)))
	})
	if err != nil {
		o.log.Error().Err(err).Str("step", "generate").Msg("no se pudo generar el comprobante")
		return nil, err
	}

	logger := o.invoiceLogger(inv)
	logger.Info().
		Str("numero", inv.Number).
		Bool("firmado", inv.Signed).
		Msg("comprobante generado")
	return inv, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// GENERATED → SUBMITTED → RECEIVED → AUTHORIZED | NOT_AUTHORIZED | ERROR
// ═══════════════════════════════════════════════════════════════════════════

// Authorize envía el comprobante a recepción y consulta la autorización.
// Una factura RECEIVED solo se consulta. Devuelve la factura con su estado final
// también cuando hay error, para que el llamador pueda mostrarlo.
//
// Rechazos del SRI (DEVUELTA, NO AUTORIZADO) no son error: la factura queda en
// ERROR o NOT_AUTHORIZED y el mensaje en SRIMessage. Las fallas de red devuelven
// un error que envuelve domain.ErrTransport y dejan el estado listo para reintentar.
func (o *SRIOrchestrator) Authorize(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	inv, err := o.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	switch inv.SRIStatus {
	case entity.StateAuthorized:
		return inv, fmt.Errorf("%w: %s (autorización %s)", domain.ErrAlreadyAuthorized, inv.Number, inv.AuthorizationNumber)
	case entity.StateError, entity.StateNotAuthorized:
		return inv, fmt.Errorf("%w: %s está en %s", domain.ErrRegenerationRequired, inv.Number, inv.SRIStatus)
	case entity.StateGenerated, entity.StateSubmitted:
		return o.submit(ctx, inv)
	case entity.StateReceived:
		return o.poll(ctx, inv)
	default:
		return inv, fmt.Errorf("%w: no se puede autorizar desde %s", domain.ErrInvalidTransition, inv.SRIStatus)
	}
}

func (o *SRIOrchestrator) submit(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error) {
	logger := o.invoiceLogger(inv)

	if inv.SRIStatus == entity.StateGenerated {
		if err := o.transition(inv, entity.StateSubmitted); err != nil {
			return inv, err
		}
		if err := o.persist(ctx, inv, entity.StateGenerated, nil); err != nil {
			return inv, err
		}
	}

	out := o.authority.Submit(ctx, []byte(inv.XMLSigned))
	message := infrasri.FormatMessages(out.Messages)

	status := out.Status
	if status == infrasri.SubmitReturned && accessKeyRegistered(out.Messages) {
		// Reenvío tras una falla de red: el SRI ya había recibido esta clave.
		logger.Info().Str("mensaje_sri", message).Msg("clave de acceso ya registrada en el SRI, se consulta la autorización")
		status = infrasri.SubmitReceived
	}

	switch status {
	case infrasri.SubmitReceived:
		from := inv.SRIStatus
		if err := o.transition(inv, entity.StateReceived); err != nil {
			return inv, err
		}
		inv.SRIMessage = message
		rec := o.record(inv, entity.EventReceived, string(out.Status), message)
		rec.XMLRequest, rec.XMLResponse = out.RawRequest, out.RawResponse
		if err := o.persist(ctx, inv, from, rec); err != nil {
			return inv, err
		}
		logger.Info().Str("estado", string(inv.SRIStatus)).Msg("comprobante RECIBIDO por el SRI")
		return o.poll(ctx, inv)

	case infrasri.SubmitReturned:
		from := inv.SRIStatus
		if err := o.transition(inv, entity.StateError); err != nil {
			return inv, err
		}
		inv.SRIMessage = message
		rec := o.record(inv, entity.EventReturned, string(out.Status), message)
		rec.XMLRequest, rec.XMLResponse = out.RawRequest, out.RawResponse
		if err := o.persist(ctx, inv, from, rec); err != nil {
			return inv, err
		}
		o.archiveRejected(inv, storage.VariantReturned)
		logger.Warn().Str("mensaje_sri", message).Msg("comprobante DEVUELTO por el SRI")
		return inv, nil

	default:
		return o.submitFault(ctx, inv, out)
	}
}

// submitFault: una falla de red deja SUBMITTED (el SRI identifica el comprobante
// por la clave de acceso, reenviar es seguro); una falla de protocolo pasa a ERROR.
func (o *SRIOrchestrator) submitFault(ctx context.Context, inv *entity.Invoice, out infrasri.SubmitOutcome) (*entity.Invoice, error) {
	fault := out.Fault
	if fault == nil {
		fault = &infrasri.Fault{Kind: infrasri.FaultProtocol, Message: "recepción sin estado"}
	}
	from := inv.SRIStatus
	inv.SRIMessage = fault.Error()
	if !fault.Retryable() {
		if err := o.transition(inv, entity.StateError); err != nil {
			return inv, err
		}
	} else {
		inv.UpdatedAt = o.now()
	}
	rec := o.record(inv, entity.EventFault, string(fault.Kind), fault.Error())
	rec.XMLRequest, rec.XMLResponse = out.RawRequest, out.RawResponse
	if err := o.persist(ctx, inv, from, rec); err != nil {
		return inv, errors.Join(fmt.Errorf("recepción SRI: %w", fault), err)
	}
	if inv.SRIStatus == entity.StateError {
		o.archiveRejected(inv, storage.VariantError)
	}
	logger := o.invoiceLogger(inv)
	logger.Error().Err(fault).Str("estado", string(inv.SRIStatus)).Msg("falla en recepción SRI")
	return inv, fmt.Errorf("recepción SRI: %w", fault)
}

// poll consulta la autorización hasta PollAttempts veces mientras la respuesta
// sea EN PROCESO. Una falla deja la factura RECEIVED: el SRI ya tiene el
// comprobante y puede autorizarlo con esta misma clave.
func (o *SRIOrchestrator) poll(ctx context.Context, inv *entity.Invoice) (*entity.Invoice, error) {
	logger := o.invoiceLogger(inv)

	var out infrasri.AuthorizationOutcome
	for attempt := 1; attempt <= o.cfg.PollAttempts; attempt++ {
		out = o.authority.QueryAuthorization(ctx, inv.AccessKey)
		if out.Status != infrasri.AuthorizationInProcess || attempt == o.cfg.PollAttempts {
			break
		}
		logger.Debug().Int("intento", attempt).Msg("autorización EN PROCESO, reintentando")
		if err := o.sleep(ctx, o.cfg.PollInterval); err != nil {
			break
		}
	}
	message := infrasri.FormatMessages(out.Messages)

	switch out.Status {
	case infrasri.AuthorizationAuthorized:
		return o.authorized(ctx, inv, out, message)

	case infrasri.AuthorizationNotAuthorized:
		if err := o.transition(inv, entity.StateNotAuthorized); err != nil {
			return inv, err
		}
		inv.SRIMessage = message
		rec := o.record(inv, entity.EventNotAuthorized, string(out.Status), message)
		rec.XMLRequest, rec.XMLResponse = out.RawRequest, out.RawResponse
		if err := o.persist(ctx, inv, entity.StateReceived, rec); err != nil {
			return inv, err
		}
		o.archiveRejected(inv, storage.VariantNotAuthorized)
		logger.Warn().Str("mensaje_sri", message).Msg("comprobante NO AUTORIZADO")
		return inv, nil

	case infrasri.AuthorizationInProcess:
		inv.UpdatedAt = o.now()
		rec := o.record(inv, entity.EventInProcess, string(out.Status), message)
		rec.XMLRequest, rec.XMLResponse = out.RawRequest, out.RawResponse
		if err := o.persistInProcess(ctx, inv, rec); err != nil {
			return inv, err
		}
		logger.Info().Int("intentos", o.cfg.PollAttempts).Msg("autorización sigue EN PROCESO")
		return inv, nil

	default:
		fault := out.Fault
		if fault == nil {
			fault = &infrasri.Fault{Kind: infrasri.FaultProtocol, Message: "autorización sin estado"}
		}
		inv.SRIMessage = fault.Error()
		inv.UpdatedAt = o.now()
		rec := o.record(inv, entity.EventFault, string(fault.Kind), fault.Error())
		rec.XMLRequest, rec.XMLResponse = out.RawRequest, out.RawResponse
		if err := o.persist(ctx, inv, entity.StateReceived, rec); err != nil {
			return inv, errors.Join(fmt.Errorf("autorización SRI: %w", fault), err)
		}
		logger.Error().Err(fault).Msg("falla en consulta de autorización")
		return inv, fmt.Errorf("autorización SRI: %w", fault)
	}
}

// authorized archiva antes de cambiar el estado: sin el archivo AUTORIZADO la
// factura sigue RECEIVED y la próxima consulta lo vuelve a intentar.
func (o *SRIOrchestrator) authorized(ctx context.Context, inv *entity.Invoice, out infrasri.AuthorizationOutcome, message string) (*entity.Invoice, error) {
	logger := o.invoiceLogger(inv)

	file, err := o.archive.Save(inv.Number, []byte(inv.XMLSigned), storage.VariantAuthorized, inv.IssueDate)
	if err != nil {
		logger.Error().Err(err).Str("step", "archive").Msg("no se pudo archivar el comprobante autorizado")
		return inv, fmt.Errorf("archivar comprobante autorizado: %w", err)
	}
	if file.Checksum != inv.SignedChecksum {
		return inv, fmt.Errorf("%w: archivo %s", domain.ErrChecksumMismatch, file.Path)
	}

	if err := o.transition(inv, entity.StateAuthorized); err != nil {
		return inv, err
	}
	authDate := out.AuthorizationDate
	if authDate == nil {
		t := o.now()
		authDate = &t
	}
	inv.Status = entity.InvoiceStatusIssued
	inv.AuthorizationNumber = out.AuthorizationNumber
	inv.AuthorizationDate = authDate
	inv.XMLAuthorized = out.Document
	inv.SRIMessage = message

	rec := o.record(inv, entity.EventAuthorized, string(out.Status), message)
	rec.AuthorizationNumber = inv.AuthorizationNumber
	rec.AuthorizationDate = authDate
	rec.XMLRequest, rec.XMLResponse = out.RawRequest, out.RawResponse
	if err := o.persist(ctx, inv, entity.StateReceived, rec); err != nil {
		return inv, err
	}
	logger.Info().
		Str("numero_autorizacion", inv.AuthorizationNumber).
		Str("archivo", file.Path).
		Msg("comprobante AUTORIZADO")
	return inv, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ERROR | NOT_AUTHORIZED → GENERATED
// ═══════════════════════════════════════════════════════════════════════════

// Regenerate emite un nuevo comprobante para la misma factura con otro
// secuencial y otra clave de acceso. La clave anterior se conserva solo en la bitácora.
func (o *SRIOrchestrator) Regenerate(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	inv, err := o.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	switch inv.SRIStatus {
	case entity.StateAuthorized:
		return inv, fmt.Errorf("%w: %s", domain.ErrAlreadyAuthorized, inv.Number)
	case entity.StateError, entity.StateNotAuthorized:
	default:
		return inv, fmt.Errorf("%w: solo se regenera desde ERROR o NOT_AUTHORIZED (estado %s)", domain.ErrInvalidTransition, inv.SRIStatus)
	}

	previous := *inv
	totals := domainsri.ComputeTotals(inv.Items)

	err = o.tx.RunInvoicing(ctx, func(
		profileRepo repository.IssuerProfileRepository,
		invoiceRepo repository.InvoiceRepository,
		logRepo repository.AuthorizationLogRepository,
	) error {
		profile, err := profileRepo.NextSequence(ctx)
		if err != nil {
			return err
		}
		inv.DocumentVersion++
		inv.IssueDate = truncateDay(o.now())
		inv.Status = entity.InvoiceStatusDraft
		inv.AuthorizationNumber = ""
		inv.AuthorizationDate = nil
		inv.XMLAuthorized = ""
		if err := o.produceDocument(inv, profile, totals); err != nil {
			return err
		}
		if err := o.transition(inv, entity.StateGenerated); err != nil {
			return err
		}
		inv.SRIMessage = ""
		if err := invoiceRepo.UpdateElectronicData(ctx, inv, previous.SRIStatus); err != nil {
			return err
		}
		if err := o.archiveGenerated(inv); err != nil {
			return err
		}
		msg := fmt.Sprintf("versión %d reemplaza %s (clave %s)", inv.DocumentVersion, previous.Number, previous.AccessKey)
		return logRepo.Append(ctx, o.record(inv, entity.EventRegenerated, "", msg))
	})
	if err != nil {
		logger := applog.ForInvoice(o.log, invoiceID, previous.AccessKey)
		logger.Error().Err(err).Str("step", "regenerate").Msg("no se pudo regenerar el comprobante")
		return &previous, err
	}

	logger := o.invoiceLogger(inv)
	logger.Info().
		Str("clave_anterior", previous.AccessKey).
		Int("version", inv.DocumentVersion).
		Msg("comprobante regenerado")
	return inv, nil
}

// ── helpers privados ──────────────────────────────────────────────────────────

// produceDocument asigna secuencial, número y clave de acceso, construye el XML y lo firma.
func (o *SRIOrchestrator) produceDocument(inv *entity.Invoice, profile *entity.IssuerProfile, totals domainsri.Totals) error {
	if err := domainsri.ValidateProfile(profile); err != nil {
		return err
	}
	key, err := domainsri.GenerateAccessKey(domainsri.AccessKeyParams{
		IssueDate:     inv.IssueDate,
		DocumentType:  pkgsri.DocumentTypeInvoice,
		RUC:           profile.RUC,
		Environment:   profile.Environment,
		Establishment: profile.Establishment,
		PointOfSale:   profile.PointOfSale,
		Sequence:      profile.CurrentSequence,
		NumericCode:   profile.NumericCode,
		EmissionType:  profile.EmissionType,
	})
	if err != nil {
		return err
	}
	inv.Sequence = profile.CurrentSequence
	inv.Number = profile.InvoiceNumber(profile.CurrentSequence)
	inv.AccessKey = key
	inv.Environment = profile.Environment

	unsigned, err := o.builder.Build(&infrasri.InvoiceBuildContext{Profile: profile, Invoice: inv, Totals: totals})
	if err != nil {
		return fmt.Errorf("construir XML: %w", err)
	}
	signed, err := o.signer.Sign(unsigned)
	if err != nil {
		return err
	}
	inv.XMLUnsigned = string(unsigned)
	inv.XMLSigned = string(signed.XML)
	inv.Signed = signed.Signed
	inv.SignedChecksum = storage.Checksum(signed.XML)
	return nil
}

func (o *SRIOrchestrator) archiveGenerated(inv *entity.Invoice) error {
	if _, err := o.archive.Save(inv.Number, []byte(inv.XMLUnsigned), storage.VariantUnsigned, inv.IssueDate); err != nil {
		return err
	}
	_, err := o.archive.Save(inv.Number, []byte(inv.XMLSigned), storage.VariantPending, inv.IssueDate)
	return err
}

// archiveRejected guarda la variante rechazada. El estado ya está persistido;
// una falla aquí solo se registra.
func (o *SRIOrchestrator) archiveRejected(inv *entity.Invoice, variant storage.Variant) {
	if _, err := o.archive.Save(inv.Number, []byte(inv.XMLSigned), variant, inv.IssueDate); err != nil {
		logger := o.invoiceLogger(inv)
		logger.Error().Err(err).Str("variante", string(variant)).Msg("no se pudo archivar el comprobante rechazado")
	}
}

func (o *SRIOrchestrator) transition(inv *entity.Invoice, next entity.LifecycleState) error {
	if !inv.SRIStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s → %s", domain.ErrInvalidTransition, inv.SRIStatus, next)
	}
	inv.SRIStatus = next
	inv.UpdatedAt = o.now()
	return nil
}

// persist guarda la factura y, si hay, el registro de bitácora en una transacción.
// La escritura solo ocurre si el estado almacenado sigue siendo from; si otra
// petición lo cambió primero, nada se escribe e inv se recarga con el estado vigente.
func (o *SRIOrchestrator) persist(ctx context.Context, inv *entity.Invoice, from entity.LifecycleState, rec *entity.AuthorizationRecord) error {
	err := o.tx.RunInvoicing(ctx, func(
		_ repository.IssuerProfileRepository,
		invoiceRepo repository.InvoiceRepository,
		logRepo repository.AuthorizationLogRepository,
	) error {
		if err := invoiceRepo.UpdateElectronicData(ctx, inv, from); err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		return logRepo.Append(ctx, rec)
	})
	return o.refreshOnConflict(ctx, inv, err)
}

// persistInProcess deja la factura RECEIVED y registra IN_PROCESS solo si el
// último registro de esta clave de acceso no lo es ya.
func (o *SRIOrchestrator) persistInProcess(ctx context.Context, inv *entity.Invoice, rec *entity.AuthorizationRecord) error {
	err := o.tx.RunInvoicing(ctx, func(
		_ repository.IssuerProfileRepository,
		invoiceRepo repository.InvoiceRepository,
		logRepo repository.AuthorizationLogRepository,
	) error {
		if err := invoiceRepo.UpdateElectronicData(ctx, inv, entity.StateReceived); err != nil {
			return err
		}
		history, err := logRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if lastEvent(history, inv.AccessKey) == entity.EventInProcess {
			return nil
		}
		return logRepo.Append(ctx, rec)
	})
	return o.refreshOnConflict(ctx, inv, err)
}

// refreshOnConflict recarga inv cuando la escritura perdió contra otra transición.
func (o *SRIOrchestrator) refreshOnConflict(ctx context.Context, inv *entity.Invoice, err error) error {
	if !errors.Is(err, domain.ErrInvalidTransition) {
		return err
	}
	current, loadErr := o.load(ctx, inv.ID)
	if loadErr != nil {
		return errors.Join(err, loadErr)
	}
	*inv = *current
	logger := o.invoiceLogger(inv)
	logger.Warn().Err(err).Str("estado", string(inv.SRIStatus)).Msg("transición descartada: el estado cambió en otra petición")
	return err
}

func lastEvent(history []*entity.AuthorizationRecord, accessKey string) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].AccessKey == accessKey {
			return history[i].Event
		}
	}
	return ""
}

func (o *SRIOrchestrator) record(inv *entity.Invoice, event, authorityStatus, message string) *entity.AuthorizationRecord {
	return &entity.AuthorizationRecord{
		ID:              uuid.New().String(),
		InvoiceID:       inv.ID,
		AccessKey:       inv.AccessKey,
		Event:           event,
		AuthorityStatus: authorityStatus,
		Message:         message,
		CreatedAt:       o.now(),
	}
}

// load obtiene la factura con sus líneas, pagos y campos adicionales.
func (o *SRIOrchestrator) load(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	return loadInvoice(ctx, o.invoices, invoiceID)
}

func (o *SRIOrchestrator) invoiceLogger(inv *entity.Invoice) zerolog.Logger {
	return applog.ForInvoice(o.log, inv.ID, inv.AccessKey)
}

func loadInvoice(ctx context.Context, invoices repository.InvoiceRepository, invoiceID string) (*entity.Invoice, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: id de factura requerido", domain.ErrInvalidInput)
	}
	inv, err := invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	if inv.Items, err = invoices.GetItems(ctx, invoiceID); err != nil {
		return nil, err
	}
	if inv.Payments, err = invoices.GetPayments(ctx, invoiceID); err != nil {
		return nil, err
	}
	if inv.AdditionalFields, err = invoices.GetAdditionalFields(ctx, invoiceID); err != nil {
		return nil, err
	}
	return inv, nil
}

func accessKeyRegistered(msgs []entity.AuthorityMessage) bool {
	for _, m := range msgs {
		if m.Identifier == pkgsri.MessageAccessKeyRegistered {
			return true
		}
	}
	return false
}

func generatedMessage(inv *entity.Invoice) string {
	if !inv.Signed {
		return fmt.Sprintf("comprobante %s generado SIN FIRMA", inv.Number)
	}
	return fmt.Sprintf("comprobante %s generado y firmado", inv.Number)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
