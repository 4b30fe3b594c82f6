package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
	"github.com/vanessaachristy/mymedtrust-be/internal/fingerprint"
	"github.com/vanessaachristy/mymedtrust-be/internal/ledger"
	"github.com/vanessaachristy/mymedtrust-be/internal/store"
)

// CoordinatorMetrics receives lifecycle outcomes. A nil value disables
// instrumentation.
type CoordinatorMetrics interface {
	RecordOperation(op string, outcome string)
	VerifyOutcome(result string)
}

// divergedRetries bounds how often a read retries a transiently
// diverged record before surfacing the divergence.
const (
	divergedRetries      = 3
	divergedRetryBackoff = 100 * time.Millisecond
)

// RecordService coordinates every record write across the ledger and
// the document store. The two writes are not atomic; the service owns
// the ordering (store leg first, ledger leg second), the per-record
// serialization, and the compensating action when the second leg fails.
type RecordService struct {
	ledger   ledger.Gateway
	store    store.Gateway
	auditSvc *AuditService
	log      *zap.Logger
	metrics  CoordinatorMetrics
	locks    *keyedMutex
	sagas    *sagaLog
}

func NewRecordService(lg ledger.Gateway, st store.Gateway, auditSvc *AuditService, metrics CoordinatorMetrics, log *zap.Logger) *RecordService {
	return &RecordService{
		ledger:   lg,
		store:    st,
		auditSvc: auditSvc,
		log:      log,
		metrics:  metrics,
		locks:    newKeyedMutex(),
		sagas:    newSagaLog(),
	}
}

// Create runs the create saga:
//
//	authorize -> allocate ID -> store document -> fingerprint the STORED
//	document -> append ledger entry (status pending).
//
// The store leg goes first because a failed ledger append can be
// compensated by deleting the document; a store failure after an
// irreversible ledger append could not be.
func (s *RecordService) Create(ctx context.Context, cmd *record.CreateRecordCommand) (*record.Summary, error) {
	if err := validateCreateCommand(cmd); err != nil {
		return nil, err
	}

	patient, err := s.ledger.GetPatient(ctx, cmd.Patient)
	if err != nil {
		return nil, fmt.Errorf("looking up patient: %w", err)
	}

	if err := Authorize(AuthzRequest{
		Actor:     cmd.Actor,
		Operation: OpCreate,
		Patient:   patient,
		Doctor:    cmd.Doctor,
	}).Err(OpCreate); err != nil {
		s.observe(OpCreate, "unauthorized")
		return nil, err
	}

	id, err := newRecordID(cmd.Payload)
	if err != nil {
		return nil, err
	}
	if patient.HasRecord(id) {
		return nil, record.ErrDuplicateRecord
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	attempt := s.sagas.begin(id, OpCreate, cmd.Actor, cmd.Patient)

	doc := &document.Document{
		ID:             id,
		Kind:           cmd.Kind,
		Payload:        cmd.Payload,
		Timestamp:      time.Now().UTC(),
		AdditionalNote: cmd.Note,
	}
	stored, err := s.store.Create(ctx, doc)
	if err != nil {
		s.sagas.finish(attempt, sagaCompensated, "store leg failed, nothing applied")
		s.observe(OpCreate, "store_failed")
		return nil, fmt.Errorf("persisting document: %w", err)
	}
	s.sagas.step(attempt, stepStore)

	// Fingerprint the stored form, not the input: the store may have
	// normalized fields on write, and the fingerprint must match what a
	// later read returns.
	fp, err := fingerprint.Encode(stored)
	if err != nil {
		return nil, s.compensateCreate(ctx, attempt, stored, fmt.Errorf("fingerprinting document: %w", err))
	}

	// Commit point. From here the saga runs to completion even if the
	// caller disconnects; aborting between the legs without the
	// compensating step would strand an orphan.
	commitCtx := context.WithoutCancel(ctx)

	receipt, err := s.ledger.CreateRecord(commitCtx, id, fp, cmd.Doctor, cmd.Patient, cmd.Actor)
	if err != nil {
		return nil, s.compensateCreate(commitCtx, attempt, stored, fmt.Errorf("appending ledger record: %w", err))
	}
	s.sagas.step(attempt, stepLedger)
	s.sagas.finish(attempt, sagaCommitted, "")

	s.observe(OpCreate, "ok")
	s.audit(ctx, cmd.Actor, domain.ActionCreate, id, "ok")
	s.log.Info("record created",
		zap.String("record_id", id),
		zap.String("patient", cmd.Patient.String()),
		zap.String("doctor", cmd.Doctor.String()),
		zap.String("kind", string(cmd.Kind)),
	)

	return &record.Summary{
		ID:           id,
		Fingerprint:  fp,
		IssuerDoctor: cmd.Doctor,
		Patient:      cmd.Patient,
		Timestamp:    receipt.Timestamp,
		Status:       record.StatusPending,
		Kind:         stored.Kind,
		Document:     stored,
		Verify:       record.VerifyConsistent,
	}, nil
}

// compensateCreate undoes the store leg after the ledger leg failed. If
// the compensating delete also fails the attempt is stranded: the
// orphaned document is reported, never silently kept.
func (s *RecordService) compensateCreate(ctx context.Context, attempt *sagaAttempt, stored *document.Document, cause error) error {
	s.sagas.step(attempt, stepCompensate)
	if derr := s.store.Delete(ctx, stored.Kind, stored.ID); derr != nil {
		s.sagas.finish(attempt, sagaStranded, "ledger leg failed and compensating delete failed")
		s.observe(OpCreate, "partial_failure")
		s.log.Error("create compensation failed, store document stranded",
			zap.String("record_id", stored.ID),
			zap.NamedError("cause", cause),
			zap.NamedError("compensation", derr),
		)
		return &PartialFailureError{
			Operation:    OpCreate,
			RecordID:     stored.ID,
			StoreApplied: true,
			Cause:        cause,
		}
	}
	s.sagas.finish(attempt, sagaCompensated, "ledger leg failed, store leg rolled back")
	s.observe(OpCreate, "compensated")
	return cause
}

// Edit runs the edit saga: update the store document, recompute the
// fingerprint from the stored result, then update the ledger entry. If
// the ledger leg fails the prior payload is restored; if the restore
// also fails the divergence is reported as a partial failure, never
// swallowed.
func (s *RecordService) Edit(ctx context.Context, cmd *record.EditRecordCommand) (*record.Summary, error) {
	if err := validateEditCommand(cmd); err != nil {
		return nil, err
	}

	rec, err := s.ledger.GetRecord(ctx, cmd.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up record: %w", err)
	}

	if err := Authorize(AuthzRequest{
		Actor:     cmd.Actor,
		Operation: OpEdit,
		Record:    rec,
	}).Err(OpEdit); err != nil {
		s.observe(OpEdit, "unauthorized")
		return nil, err
	}

	unlock := s.locks.Lock(cmd.ID)
	defer unlock()

	prev, err := s.store.FindAny(ctx, cmd.ID)
	if err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			// Ledger entry with no document: a stranded delete or a bug.
			// Refuse to edit on top of an orphan.
			return nil, fmt.Errorf("record %s: %w", cmd.ID, record.ErrDiverged)
		}
		return nil, fmt.Errorf("reading current document: %w", err)
	}

	attempt := s.sagas.begin(cmd.ID, OpEdit, cmd.Actor, rec.Patient)

	next := &document.Document{
		ID:             cmd.ID,
		Kind:           prev.Kind,
		Payload:        cmd.Payload,
		Timestamp:      time.Now().UTC(),
		AdditionalNote: cmd.Note,
	}
	stored, err := s.store.Update(ctx, next)
	if err != nil {
		s.sagas.finish(attempt, sagaCompensated, "store leg failed, nothing applied")
		s.observe(OpEdit, "store_failed")
		return nil, fmt.Errorf("updating document: %w", err)
	}
	s.sagas.step(attempt, stepStore)

	fp, err := fingerprint.Encode(stored)
	if err != nil {
		return nil, s.compensateEdit(ctx, attempt, prev, fmt.Errorf("fingerprinting document: %w", err))
	}

	commitCtx := context.WithoutCancel(ctx)

	receipt, err := s.ledger.EditRecord(commitCtx, cmd.ID, fp, cmd.Status, cmd.Actor)
	if err != nil {
		return nil, s.compensateEdit(commitCtx, attempt, prev, fmt.Errorf("updating ledger record: %w", err))
	}
	s.sagas.step(attempt, stepLedger)
	s.sagas.finish(attempt, sagaCommitted, "")

	s.observe(OpEdit, "ok")
	s.audit(ctx, cmd.Actor, domain.ActionUpdate, cmd.ID, "ok")
	s.log.Info("record edited",
		zap.String("record_id", cmd.ID),
		zap.String("status", cmd.Status.String()),
	)

	return &record.Summary{
		ID:           cmd.ID,
		Fingerprint:  fp,
		IssuerDoctor: rec.IssuerDoctor,
		Patient:      rec.Patient,
		Timestamp:    receipt.Timestamp,
		Status:       cmd.Status,
		Kind:         stored.Kind,
		Document:     stored,
		Verify:       record.VerifyConsistent,
	}, nil
}

func (s *RecordService) compensateEdit(ctx context.Context, attempt *sagaAttempt, prev *document.Document, cause error) error {
	s.sagas.step(attempt, stepCompensate)
	if _, rerr := s.store.Update(ctx, prev); rerr != nil {
		s.sagas.finish(attempt, sagaStranded, "ledger leg failed and restore of prior document failed")
		s.observe(OpEdit, "partial_failure")
		s.log.Error("edit compensation failed, store diverged from ledger",
			zap.String("record_id", prev.ID),
			zap.NamedError("cause", cause),
			zap.NamedError("compensation", rerr),
		)
		return &PartialFailureError{
			Operation:    OpEdit,
			RecordID:     prev.ID,
			StoreApplied: true,
			Cause:        cause,
		}
	}
	s.sagas.finish(attempt, sagaCompensated, "ledger leg failed, prior document restored")
	s.observe(OpEdit, "compensated")
	return cause
}

// Delete removes the document first and the ledger entry second. The
// chosen failure ordering: a failed ledger leg leaves an orphaned
// ledger entry, which Verify reports as such — a detectable state that
// claims no content, rather than content claiming a live record.
func (s *RecordService) Delete(ctx context.Context, id string, actor domain.Address) error {
	rec, err := s.ledger.GetRecord(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up record: %w", err)
	}

	patient, err := s.ledger.GetPatient(ctx, rec.Patient)
	if err != nil {
		return fmt.Errorf("looking up patient: %w", err)
	}

	if err := Authorize(AuthzRequest{
		Actor:     actor,
		Operation: OpDelete,
		Record:    rec,
		Patient:   patient,
	}).Err(OpDelete); err != nil {
		s.observe(OpDelete, "unauthorized")
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	attempt := s.sagas.begin(id, OpDelete, actor, rec.Patient)

	// The document may already be gone if a prior delete stranded after
	// its store leg; deleting again is a no-op and heals that state.
	if doc, err := s.store.FindAny(ctx, id); err == nil {
		if derr := s.store.Delete(ctx, doc.Kind, id); derr != nil {
			s.sagas.finish(attempt, sagaCompensated, "store leg failed, nothing applied")
			s.observe(OpDelete, "store_failed")
			return fmt.Errorf("deleting document: %w", derr)
		}
	} else if !errors.Is(err, document.ErrDocumentNotFound) {
		s.sagas.finish(attempt, sagaCompensated, "store read failed, nothing applied")
		return fmt.Errorf("reading document: %w", err)
	}
	s.sagas.step(attempt, stepStore)

	commitCtx := context.WithoutCancel(ctx)

	if _, err := s.ledger.RemoveRecord(commitCtx, id, rec.Patient, actor); err != nil {
		// No compensating re-create: the content is gone and the ledger
		// entry is now an orphan. Verify(id) reports it; reconciliation
		// retries the removal.
		s.sagas.finish(attempt, sagaStranded, "document deleted but ledger removal failed")
		s.observe(OpDelete, "partial_failure")
		return &PartialFailureError{
			Operation:    OpDelete,
			RecordID:     id,
			StoreApplied: true,
			Cause:        fmt.Errorf("removing ledger record: %w", err),
		}
	}
	s.sagas.step(attempt, stepLedger)
	s.sagas.finish(attempt, sagaCommitted, "")

	s.observe(OpDelete, "ok")
	s.audit(ctx, actor, domain.ActionDelete, id, "ok")
	s.log.Info("record deleted", zap.String("record_id", id))
	return nil
}

// Verify fetches both sides of a record and classifies their
// relationship. Used as the read-path guard and by the reconciliation
// job.
func (s *RecordService) Verify(ctx context.Context, id string) (record.VerifyResult, error) {
	rec, err := s.ledger.GetRecord(ctx, id)
	ledgerAbsent := errors.Is(err, record.ErrRecordNotFound)
	if err != nil && !ledgerAbsent {
		return "", fmt.Errorf("looking up record: %w", err)
	}

	doc, err := s.store.FindAny(ctx, id)
	storeAbsent := errors.Is(err, document.ErrDocumentNotFound)
	if err != nil && !storeAbsent {
		return "", fmt.Errorf("looking up document: %w", err)
	}

	var result record.VerifyResult
	switch {
	case ledgerAbsent && storeAbsent:
		result = record.VerifyAbsent
	case ledgerAbsent:
		result = record.VerifyOrphanedDocument
	case storeAbsent:
		result = record.VerifyOrphanedLedgerEntry
	case fingerprint.Verify(doc, rec.Fingerprint):
		result = record.VerifyConsistent
	default:
		result = record.VerifyDiverged
	}

	if s.metrics != nil {
		s.metrics.VerifyOutcome(string(result))
	}
	return result, nil
}

// Get returns a record joined with its document, guarded by
// verification: diverged content is never served as if it were clean.
// A transient divergence (a write in flight on another request) is
// retried within a small budget before being surfaced.
func (s *RecordService) Get(ctx context.Context, id string) (*record.Summary, error) {
	var summary *record.Summary

	op := func() error {
		rec, err := s.ledger.GetRecord(ctx, id)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("looking up record: %w", err))
		}
		doc, err := s.store.FindAny(ctx, id)
		if err != nil {
			if errors.Is(err, document.ErrDocumentNotFound) {
				return backoff.Permanent(fmt.Errorf("record %s: %w", id, record.ErrDiverged))
			}
			return backoff.Permanent(fmt.Errorf("looking up document: %w", err))
		}

		if !fingerprint.Verify(doc, rec.Fingerprint) {
			// Retryable: may be a write in flight.
			return record.ErrDiverged
		}

		summary = &record.Summary{
			ID:           rec.ID,
			Fingerprint:  rec.Fingerprint,
			IssuerDoctor: rec.IssuerDoctor,
			Patient:      rec.Patient,
			Timestamp:    rec.CreatedAt,
			Status:       rec.Status,
			Kind:         doc.Kind,
			Document:     doc,
			Verify:       record.VerifyConsistent,
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(divergedRetryBackoff), divergedRetries),
		ctx,
	)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, record.ErrDiverged) {
			s.observe(OpRead, "diverged")
		}
		return nil, err
	}

	s.observe(OpRead, "ok")
	return summary, nil
}

// GetByKind is Get restricted to one collection: the record must
// resolve to the requested kind.
func (s *RecordService) GetByKind(ctx context.Context, kind document.Kind, id string) (*record.Summary, error) {
	if !kind.IsValid() {
		return nil, document.ErrUnknownKind
	}
	summary, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if summary.Kind != kind {
		return nil, document.ErrDocumentNotFound
	}
	return summary, nil
}

// ListPatientRecords walks the patient's ledger record index and joins
// each entry with its document. Entries that fail verification are
// included with their divergence state visible, so callers can warn
// instead of trusting them.
func (s *RecordService) ListPatientRecords(ctx context.Context, patientAddr domain.Address) ([]*record.Summary, error) {
	patient, err := s.ledger.GetPatient(ctx, patientAddr)
	if err != nil {
		return nil, fmt.Errorf("looking up patient: %w", err)
	}

	summaries := make([]*record.Summary, 0, len(patient.Records))
	for _, id := range patient.Records {
		summary, err := s.summarize(ctx, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ListPatientRecordsByKind filters the patient's records to one
// clinical document kind.
func (s *RecordService) ListPatientRecordsByKind(ctx context.Context, patientAddr domain.Address, kind document.Kind) ([]*record.Summary, error) {
	if !kind.IsValid() {
		return nil, document.ErrUnknownKind
	}

	all, err := s.ListPatientRecords(ctx, patientAddr)
	if err != nil {
		return nil, err
	}

	filtered := make([]*record.Summary, 0, len(all))
	for _, sm := range all {
		if sm.Kind == kind {
			filtered = append(filtered, sm)
		}
	}
	return filtered, nil
}

// ListDocumentsByKind lists one collection's documents without the
// ledger join.
func (s *RecordService) ListDocumentsByKind(ctx context.Context, kind document.Kind) ([]*document.Document, error) {
	return s.store.ListByKind(ctx, kind)
}

// StrandedAttempts exposes the saga log's unresolved partial failures
// for operators.
func (s *RecordService) StrandedAttempts() []sagaAttempt {
	return s.sagas.Stranded()
}

// summarize builds the record+document join without the read guard's
// retry; divergence is reported in the summary instead of failing the
// whole listing.
func (s *RecordService) summarize(ctx context.Context, id string) (*record.Summary, error) {
	rec, err := s.ledger.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, record.ErrRecordNotFound) {
			// Indexed under the patient but missing from the record
			// list. Whether the document survived decides which side is
			// the orphan.
			verify := record.VerifyAbsent
			if _, derr := s.store.FindAny(ctx, id); derr == nil {
				verify = record.VerifyOrphanedDocument
			}
			return &record.Summary{ID: id, Verify: verify}, nil
		}
		return nil, fmt.Errorf("looking up record %s: %w", id, err)
	}

	summary := &record.Summary{
		ID:           rec.ID,
		Fingerprint:  rec.Fingerprint,
		IssuerDoctor: rec.IssuerDoctor,
		Patient:      rec.Patient,
		Timestamp:    rec.CreatedAt,
		Status:       rec.Status,
	}

	doc, err := s.store.FindAny(ctx, id)
	switch {
	case errors.Is(err, document.ErrDocumentNotFound):
		summary.Verify = record.VerifyOrphanedLedgerEntry
	case err != nil:
		return nil, fmt.Errorf("looking up document %s: %w", id, err)
	case fingerprint.Verify(doc, rec.Fingerprint):
		summary.Kind = doc.Kind
		summary.Document = doc
		summary.Verify = record.VerifyConsistent
	default:
		summary.Kind = doc.Kind
		summary.Verify = record.VerifyDiverged
	}
	return summary, nil
}

// newRecordID derives a content-addressed, unguessable record ID from
// the document content and a freshness token.
func newRecordID(payload document.Payload) (string, error) {
	canon, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: payload not serializable: %v", fingerprint.ErrEncoding, err)
	}
	h := sha256.New()
	h.Write(canon)
	h.Write([]byte(uuid.NewString()))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func validateCreateCommand(cmd *record.CreateRecordCommand) error {
	var errs []string

	if !cmd.Actor.IsValid() {
		errs = append(errs, "account is not a valid address")
	}
	if !cmd.Patient.IsValid() {
		errs = append(errs, "patient is not a valid address")
	}
	if !cmd.Doctor.IsValid() {
		errs = append(errs, "doctor is not a valid address")
	}
	if !cmd.Kind.IsValid() {
		errs = append(errs, "kind must be one of observation, condition, allergy, medication")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return document.Validate(cmd.Kind, cmd.Payload)
}

func validateEditCommand(cmd *record.EditRecordCommand) error {
	var errs []string

	if cmd.ID == "" {
		errs = append(errs, "record id is required")
	}
	if !cmd.Actor.IsValid() {
		errs = append(errs, "account is not a valid address")
	}
	if !cmd.Status.IsValid() {
		errs = append(errs, "record status is invalid")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *RecordService) observe(op Operation, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOperation(string(op), outcome)
	}
}

func (s *RecordService) audit(ctx context.Context, actor domain.Address, action domain.AuditAction, id, outcome string) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       action,
		ResourceType: "record",
		ResourceID:   id,
		Outcome:      outcome,
	})
}
