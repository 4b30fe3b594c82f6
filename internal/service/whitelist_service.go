package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/ledger"
)

// WhitelistService manages the per-patient doctor whitelist on the
// ledger. Both mutations are idempotent: retries after timeouts are
// expected and must not fail or double-apply.
type WhitelistService struct {
	ledger   ledger.Gateway
	auditSvc *AuditService
	log      *zap.Logger
}

func NewWhitelistService(lg ledger.Gateway, auditSvc *AuditService, log *zap.Logger) *WhitelistService {
	return &WhitelistService{ledger: lg, auditSvc: auditSvc, log: log}
}

// WhitelistReceipt reports what an idempotent whitelist mutation did.
type WhitelistReceipt struct {
	Patient   domain.Address `json:"patient"`
	Doctor    domain.Address `json:"doctor"`
	Changed   bool           `json:"changed"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// Add whitelists a doctor for a patient. If the doctor is already
// present the call succeeds without a ledger write: duplicate entries
// and wasted ledger transactions are both avoided.
func (s *WhitelistService) Add(ctx context.Context, patientAddr, doctorAddr, requestedBy domain.Address) (*WhitelistReceipt, error) {
	if err := validateWhitelistArgs(patientAddr, doctorAddr, requestedBy); err != nil {
		return nil, err
	}

	patient, err := s.ledger.GetPatient(ctx, patientAddr)
	if err != nil {
		return nil, fmt.Errorf("looking up patient: %w", err)
	}
	if _, err := s.ledger.GetDoctor(ctx, doctorAddr); err != nil {
		return nil, fmt.Errorf("looking up doctor: %w", err)
	}

	if patient.IsWhitelisted(doctorAddr) {
		return &WhitelistReceipt{Patient: patientAddr, Doctor: doctorAddr, Changed: false}, nil
	}

	receipt, err := s.ledger.AddWhitelist(ctx, doctorAddr, patientAddr, requestedBy)
	if err != nil {
		return nil, fmt.Errorf("whitelisting doctor: %w", err)
	}

	s.audit(ctx, requestedBy, patientAddr, doctorAddr, "added")
	s.log.Info("doctor whitelisted",
		zap.String("patient", patientAddr.String()),
		zap.String("doctor", doctorAddr.String()),
	)
	return &WhitelistReceipt{
		Patient:   patientAddr,
		Doctor:    doctorAddr,
		Changed:   true,
		Timestamp: receipt.Timestamp,
	}, nil
}

// Remove un-whitelists a doctor. Removing an absent entry is a no-op
// success, not an error.
func (s *WhitelistService) Remove(ctx context.Context, patientAddr, doctorAddr, requestedBy domain.Address) (*WhitelistReceipt, error) {
	if err := validateWhitelistArgs(patientAddr, doctorAddr, requestedBy); err != nil {
		return nil, err
	}

	patient, err := s.ledger.GetPatient(ctx, patientAddr)
	if err != nil {
		return nil, fmt.Errorf("looking up patient: %w", err)
	}

	if !patient.IsWhitelisted(doctorAddr) {
		return &WhitelistReceipt{Patient: patientAddr, Doctor: doctorAddr, Changed: false}, nil
	}

	receipt, err := s.ledger.RemoveWhitelist(ctx, doctorAddr, patientAddr, requestedBy)
	if err != nil {
		return nil, fmt.Errorf("removing whitelisted doctor: %w", err)
	}

	s.audit(ctx, requestedBy, patientAddr, doctorAddr, "removed")
	s.log.Info("doctor removed from whitelist",
		zap.String("patient", patientAddr.String()),
		zap.String("doctor", doctorAddr.String()),
	)
	return &WhitelistReceipt{
		Patient:   patientAddr,
		Doctor:    doctorAddr,
		Changed:   true,
		Timestamp: receipt.Timestamp,
	}, nil
}

func validateWhitelistArgs(patient, doctor, requestedBy domain.Address) error {
	var errs []string
	if !patient.IsValid() {
		errs = append(errs, "patient is not a valid address")
	}
	if !doctor.IsValid() {
		errs = append(errs, "doctor is not a valid address")
	}
	if !requestedBy.IsValid() {
		errs = append(errs, "account is not a valid address")
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *WhitelistService) audit(ctx context.Context, actor, patient, doctor domain.Address, outcome string) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionWhitelist,
		ResourceType: "whitelist",
		ResourceID:   patient.String() + ":" + doctor.String(),
		Outcome:      outcome,
	})
}
