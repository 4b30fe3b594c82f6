package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/identity"
	"github.com/vanessaachristy/mymedtrust-be/internal/ledger"
)

// IdentityService fronts the ledger's patient and doctor directories.
// Both directories are immutable once written; creation is the only
// mutation.
type IdentityService struct {
	ledger   ledger.Gateway
	auditSvc *AuditService
	log      *zap.Logger
}

func NewIdentityService(lg ledger.Gateway, auditSvc *AuditService, log *zap.Logger) *IdentityService {
	return &IdentityService{ledger: lg, auditSvc: auditSvc, log: log}
}

// CreatedIdentity echoes the directory entry plus the server-assigned
// registration time from the ledger receipt.
type CreatedIdentity struct {
	Address   domain.Address `json:"address"`
	Name      string         `json:"name"`
	IC        string         `json:"ic"`
	Timestamp time.Time      `json:"timestamp"`
}

func (s *IdentityService) CreatePatient(ctx context.Context, cmd *identity.CreatePatientCommand, sender domain.Address) (*CreatedIdentity, error) {
	if err := validatePrimaryInfo(&cmd.PrimaryInfo, sender); err != nil {
		return nil, err
	}
	if cmd.BloodType != "" && !cmd.BloodType.IsValid() {
		return nil, &ValidationError{Fields: []string{"blood_type must be one of A, B, AB, O"}}
	}

	if _, err := s.ledger.GetPatient(ctx, cmd.PrimaryInfo.Address); err == nil {
		return nil, identity.ErrPatientAlreadyExists
	}

	cmd.PrimaryInfo.UserSince = time.Now().UTC()
	receipt, err := s.ledger.CreatePatient(ctx, cmd, sender)
	if err != nil {
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	s.audit(ctx, sender, "patient", cmd.PrimaryInfo.Address)
	s.log.Info("patient registered",
		zap.String("address", cmd.PrimaryInfo.Address.String()),
	)

	return &CreatedIdentity{
		Address:   cmd.PrimaryInfo.Address,
		Name:      cmd.PrimaryInfo.Name,
		IC:        cmd.PrimaryInfo.IC,
		Timestamp: receipt.Timestamp,
	}, nil
}

func (s *IdentityService) CreateDoctor(ctx context.Context, cmd *identity.CreateDoctorCommand, sender domain.Address) (*CreatedIdentity, error) {
	if err := validatePrimaryInfo(&cmd.PrimaryInfo, sender); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.Qualification) == "" {
		return nil, &ValidationError{Fields: []string{"qualification is required"}}
	}

	if _, err := s.ledger.GetDoctor(ctx, cmd.PrimaryInfo.Address); err == nil {
		return nil, identity.ErrDoctorAlreadyExists
	}

	cmd.PrimaryInfo.UserSince = time.Now().UTC()
	receipt, err := s.ledger.CreateDoctor(ctx, cmd, sender)
	if err != nil {
		return nil, fmt.Errorf("creating doctor: %w", err)
	}

	s.audit(ctx, sender, "doctor", cmd.PrimaryInfo.Address)
	s.log.Info("doctor registered",
		zap.String("address", cmd.PrimaryInfo.Address.String()),
	)

	return &CreatedIdentity{
		Address:   cmd.PrimaryInfo.Address,
		Name:      cmd.PrimaryInfo.Name,
		IC:        cmd.PrimaryInfo.IC,
		Timestamp: receipt.Timestamp,
	}, nil
}

func (s *IdentityService) GetPatient(ctx context.Context, addr domain.Address) (*identity.Patient, error) {
	if !addr.IsValid() {
		return nil, identity.ErrInvalidAddress
	}
	return s.ledger.GetPatient(ctx, addr)
}

func (s *IdentityService) ListPatients(ctx context.Context) ([]*identity.Patient, error) {
	return s.ledger.ListPatients(ctx)
}

func (s *IdentityService) GetDoctor(ctx context.Context, addr domain.Address) (*identity.Doctor, error) {
	if !addr.IsValid() {
		return nil, identity.ErrInvalidAddress
	}
	return s.ledger.GetDoctor(ctx, addr)
}

func (s *IdentityService) ListDoctors(ctx context.Context) ([]*identity.Doctor, error) {
	return s.ledger.ListDoctors(ctx)
}

func validatePrimaryInfo(info *identity.PrimaryInfo, sender domain.Address) error {
	var errs []string

	if !info.Address.IsValid() {
		errs = append(errs, "address is invalid")
	}
	if !sender.IsValid() {
		errs = append(errs, "account is not a valid address")
	}
	if strings.TrimSpace(info.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(info.IC) == "" {
		errs = append(errs, "ic is required")
	}
	if !info.Gender.IsValid() {
		errs = append(errs, "gender is invalid")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *IdentityService) audit(ctx context.Context, actor domain.Address, resourceType string, addr domain.Address) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Actor:        actor,
		Action:       domain.ActionCreate,
		ResourceType: resourceType,
		ResourceID:   addr.String(),
	})
}
