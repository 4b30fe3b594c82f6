package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/identity"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
)

func observationPayload() document.Payload {
	return document.Payload{
		"resourceType": "Observation",
		"status":       "final",
		"code":         map[string]any{"text": "Heart Rate"},
		"subject":      patientAddr.String(),
	}
}

func newTestRecordService(t *testing.T) (*RecordService, *fakeLedger, *fakeStore) {
	t.Helper()
	lg := newFakeLedger()
	st := newFakeStore()
	lg.patients[patientAddr] = &identity.Patient{
		PrimaryInfo: identity.PrimaryInfo{Address: patientAddr, Name: "Alice"},
		Whitelist:   []domain.Address{doctorAddr},
	}
	lg.doctors[doctorAddr] = &identity.Doctor{
		PrimaryInfo: identity.PrimaryInfo{Address: doctorAddr, Name: "Dr Bob"},
	}
	svc := NewRecordService(lg, st, nil, nil, zap.NewNop())
	return svc, lg, st
}

func mustCreate(t *testing.T, svc *RecordService) *record.Summary {
	t.Helper()
	summary, err := svc.Create(context.Background(), &record.CreateRecordCommand{
		Patient: patientAddr,
		Doctor:  doctorAddr,
		Kind:    document.KindObservation,
		Payload: observationPayload(),
		Actor:   doctorAddr,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return summary
}

func TestCreateThenGetConsistent(t *testing.T) {
	svc, lg, _ := newTestRecordService(t)
	summary := mustCreate(t, svc)

	if summary.Status != record.StatusPending {
		t.Errorf("Status = %v, want pending", summary.Status)
	}
	if summary.Verify != record.VerifyConsistent {
		t.Errorf("Verify = %q, want consistent", summary.Verify)
	}

	result, err := svc.Verify(context.Background(), summary.ID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result != record.VerifyConsistent {
		t.Errorf("Verify() = %q, want consistent", result)
	}

	got, err := svc.Get(context.Background(), summary.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Fingerprint != summary.Fingerprint {
		t.Errorf("Get fingerprint mismatch")
	}

	list, err := svc.ListPatientRecords(context.Background(), patientAddr)
	if err != nil {
		t.Fatalf("ListPatientRecords() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != summary.ID {
		t.Errorf("listing = %d entries, want the created record once", len(list))
	}

	if len(lg.patients[patientAddr].Records) != 1 {
		t.Errorf("patient index has %d entries, want 1", len(lg.patients[patientAddr].Records))
	}
}

func TestCreateUnauthorizedLeavesNoOrphan(t *testing.T) {
	svc, lg, st := newTestRecordService(t)

	_, err := svc.Create(context.Background(), &record.CreateRecordCommand{
		Patient: patientAddr,
		Doctor:  otherDoctor, // not whitelisted
		Kind:    document.KindObservation,
		Payload: observationPayload(),
		Actor:   otherDoctor,
	})

	var authzErr *UnauthorizedError
	if !errors.As(err, &authzErr) {
		t.Fatalf("Create() error = %v, want *UnauthorizedError", err)
	}
	if authzErr.Reason != ReasonDoctorNotWhitelisted {
		t.Errorf("Reason = %q, want doctor_not_whitelisted", authzErr.Reason)
	}
	if len(st.docs) != 0 {
		t.Error("denied create left a document in the store")
	}
	if len(lg.records) != 0 {
		t.Error("denied create left a ledger record")
	}
}

func TestCreateLedgerFailureCompensates(t *testing.T) {
	svc, lg, st := newTestRecordService(t)
	lg.failSends = true

	_, err := svc.Create(context.Background(), &record.CreateRecordCommand{
		Patient: patientAddr,
		Doctor:  doctorAddr,
		Kind:    document.KindObservation,
		Payload: observationPayload(),
		Actor:   doctorAddr,
	})
	if err == nil {
		t.Fatal("Create() succeeded with failing ledger")
	}
	var partial *PartialFailureError
	if errors.As(err, &partial) {
		t.Fatalf("Create() = PartialFailureError, want clean compensation: %v", err)
	}

	if len(st.docs) != 0 {
		t.Error("compensating delete did not remove the document")
	}
	if len(svc.StrandedAttempts()) != 0 {
		t.Error("clean compensation left a stranded attempt")
	}
}

func TestCreateCompensationFailureIsStranded(t *testing.T) {
	svc, lg, st := newTestRecordService(t)
	lg.failSends = true
	st.failDelete = true

	_, err := svc.Create(context.Background(), &record.CreateRecordCommand{
		Patient: patientAddr,
		Doctor:  doctorAddr,
		Kind:    document.KindObservation,
		Payload: observationPayload(),
		Actor:   doctorAddr,
	})

	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("Create() error = %v, want *PartialFailureError", err)
	}
	if !partial.StoreApplied {
		t.Error("PartialFailureError should report the surviving store leg")
	}

	stranded := svc.StrandedAttempts()
	if len(stranded) != 1 {
		t.Fatalf("StrandedAttempts() = %d, want 1", len(stranded))
	}
	if stranded[0].RecordID != partial.RecordID || stranded[0].Operation != OpCreate {
		t.Errorf("stranded attempt = %+v", stranded[0])
	}

	result, err := svc.Verify(context.Background(), partial.RecordID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result != record.VerifyOrphanedDocument {
		t.Errorf("Verify() = %q, want orphaned_document", result)
	}
}

func TestEditChangesFingerprint(t *testing.T) {
	svc, _, _ := newTestRecordService(t)
	created := mustCreate(t, svc)

	payload := observationPayload()
	payload["status"] = "amended"

	edited, err := svc.Edit(context.Background(), &record.EditRecordCommand{
		ID:      created.ID,
		Payload: payload,
		Status:  record.StatusCompleted,
		Actor:   doctorAddr,
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if edited.Fingerprint == created.Fingerprint {
		t.Error("edit did not change the fingerprint")
	}
	if edited.Status != record.StatusCompleted {
		t.Errorf("Status = %v, want completed", edited.Status)
	}

	result, err := svc.Verify(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result != record.VerifyConsistent {
		t.Errorf("Verify() after edit = %q, want consistent", result)
	}
}

func TestEditByThirdPartyDenied(t *testing.T) {
	svc, _, _ := newTestRecordService(t)
	created := mustCreate(t, svc)

	_, err := svc.Edit(context.Background(), &record.EditRecordCommand{
		ID:      created.ID,
		Payload: observationPayload(),
		Status:  record.StatusCompleted,
		Actor:   strangerAddr,
	})

	var authzErr *UnauthorizedError
	if !errors.As(err, &authzErr) {
		t.Fatalf("Edit() error = %v, want *UnauthorizedError", err)
	}
	if authzErr.Reason != ReasonNotIssuerOrPatient {
		t.Errorf("Reason = %q, want not_issuer_doctor_or_patient", authzErr.Reason)
	}
}

func TestEditLedgerFailureRestoresDocument(t *testing.T) {
	svc, lg, st := newTestRecordService(t)
	created := mustCreate(t, svc)

	lg.failSends = true
	payload := observationPayload()
	payload["status"] = "amended"

	_, err := svc.Edit(context.Background(), &record.EditRecordCommand{
		ID:      created.ID,
		Payload: payload,
		Status:  record.StatusCompleted,
		Actor:   doctorAddr,
	})
	if err == nil {
		t.Fatal("Edit() succeeded with failing ledger")
	}

	doc := st.docs[created.ID]
	if doc == nil {
		t.Fatal("document missing after failed edit")
	}
	if doc.Payload["status"] != "final" {
		t.Errorf("payload status = %v, want restored value final", doc.Payload["status"])
	}

	result, err := svc.Verify(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result != record.VerifyConsistent {
		t.Errorf("Verify() after rollback = %q, want consistent", result)
	}
}

func TestDeleteRemovesBothSides(t *testing.T) {
	svc, lg, st := newTestRecordService(t)
	created := mustCreate(t, svc)

	if err := svc.Delete(context.Background(), created.ID, patientAddr); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(st.docs) != 0 {
		t.Error("document survived delete")
	}
	if len(lg.records) != 0 {
		t.Error("ledger record survived delete")
	}
	if len(lg.patients[patientAddr].Records) != 0 {
		t.Error("patient index still references the deleted record")
	}

	result, err := svc.Verify(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result != record.VerifyAbsent {
		t.Errorf("Verify() = %q, want absent", result)
	}

	err = svc.Delete(context.Background(), created.ID, patientAddr)
	if !errors.Is(err, record.ErrRecordNotFound) {
		t.Errorf("second Delete() error = %v, want ErrRecordNotFound", err)
	}
}

func TestDeleteLedgerFailureLeavesOrphanedEntry(t *testing.T) {
	svc, lg, _ := newTestRecordService(t)
	created := mustCreate(t, svc)

	lg.failSends = true
	err := svc.Delete(context.Background(), created.ID, patientAddr)

	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("Delete() error = %v, want *PartialFailureError", err)
	}

	result, verr := svc.Verify(context.Background(), created.ID)
	if verr != nil {
		t.Fatalf("Verify() error = %v", verr)
	}
	if result != record.VerifyOrphanedLedgerEntry {
		t.Errorf("Verify() = %q, want orphaned_ledger_entry", result)
	}
	if len(svc.StrandedAttempts()) != 1 {
		t.Errorf("StrandedAttempts() = %d, want 1", len(svc.StrandedAttempts()))
	}
}

func TestGetDivergedSurfacesError(t *testing.T) {
	svc, _, st := newTestRecordService(t)
	created := mustCreate(t, svc)

	// Mutate store content behind the coordinator's back.
	st.mu.Lock()
	st.docs[created.ID].Payload["status"] = "tampered"
	st.mu.Unlock()

	_, err := svc.Get(context.Background(), created.ID)
	if !errors.Is(err, record.ErrDiverged) {
		t.Fatalf("Get() error = %v, want ErrDiverged", err)
	}

	result, verr := svc.Verify(context.Background(), created.ID)
	if verr != nil {
		t.Fatalf("Verify() error = %v", verr)
	}
	if result != record.VerifyDiverged {
		t.Errorf("Verify() = %q, want diverged", result)
	}

	// Listings still include the record, flagged instead of trusted.
	list, lerr := svc.ListPatientRecords(context.Background(), patientAddr)
	if lerr != nil {
		t.Fatalf("ListPatientRecords() error = %v", lerr)
	}
	if len(list) != 1 || list[0].Verify != record.VerifyDiverged {
		t.Errorf("listing entry verify = %+v, want diverged", list)
	}
}

func TestCreateRejectsMissingRequiredFields(t *testing.T) {
	svc, _, st := newTestRecordService(t)

	_, err := svc.Create(context.Background(), &record.CreateRecordCommand{
		Patient: patientAddr,
		Doctor:  doctorAddr,
		Kind:    document.KindObservation,
		Payload: document.Payload{"resourceType": "Observation"},
		Actor:   doctorAddr,
	})

	var missing *document.MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("Create() error = %v, want *MissingFieldsError", err)
	}
	if len(st.docs) != 0 {
		t.Error("invalid create reached the store")
	}
}

func TestGetByKindMismatch(t *testing.T) {
	svc, _, _ := newTestRecordService(t)
	created := mustCreate(t, svc)

	if _, err := svc.GetByKind(context.Background(), document.KindObservation, created.ID); err != nil {
		t.Errorf("GetByKind(observation) error = %v", err)
	}
	if _, err := svc.GetByKind(context.Background(), document.KindAllergy, created.ID); !errors.Is(err, document.ErrDocumentNotFound) {
		t.Errorf("GetByKind(allergy) error = %v, want ErrDocumentNotFound", err)
	}
}
