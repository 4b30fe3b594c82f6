package service

import (
	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/identity"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
)

// Operation is the kind of access being evaluated.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpEdit   Operation = "edit"
	OpDelete Operation = "delete"
)

// DenyReason is the stable code an authorization denial carries.
type DenyReason string

const (
	ReasonInvalidActor          DenyReason = "invalid_actor"
	ReasonDoctorNotWhitelisted  DenyReason = "doctor_not_whitelisted"
	ReasonCallerNotParticipant  DenyReason = "caller_not_doctor_or_patient"
	ReasonNotIssuerOrPatient    DenyReason = "not_issuer_doctor_or_patient"
	ReasonNotWhitelistedOrOwner DenyReason = "not_whitelisted_doctor_or_patient"
)

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into the error the caller propagates; nil when
// allowed.
func (d Decision) Err(op Operation) error {
	if d.Allowed {
		return nil
	}
	return &UnauthorizedError{Operation: op, Reason: d.Reason}
}

// AuthzRequest carries everything one access decision needs. Record is
// nil for Create (the record does not exist yet); Doctor is the
// proposed issuer for Create and ignored otherwise.
type AuthzRequest struct {
	Actor     domain.Address
	Operation Operation
	Patient   *identity.Patient
	Record    *record.Record
	Doctor    domain.Address
}

// Authorize is the single access-control decision point. It is a pure
// function of the request: no lookups, no clock, no state. One policy
// per operation, applied everywhere:
//
//	Create: the proposed doctor is whitelisted for the patient AND the
//	        caller is that doctor or the patient.
//	Read:   any authenticated actor.
//	Edit:   the issuing doctor or the owning patient.
//	Delete: a whitelisted doctor or the owning patient.
func Authorize(req AuthzRequest) Decision {
	if !req.Actor.IsValid() {
		return deny(ReasonInvalidActor)
	}

	switch req.Operation {
	case OpCreate:
		if req.Patient == nil || !req.Doctor.IsValid() {
			return deny(ReasonInvalidActor)
		}
		if !req.Patient.IsWhitelisted(req.Doctor) {
			return deny(ReasonDoctorNotWhitelisted)
		}
		if req.Actor != req.Doctor && req.Actor != req.Patient.Address() {
			return deny(ReasonCallerNotParticipant)
		}
		return allow()

	case OpRead:
		// Authentication is the only read gate in this design.
		return allow()

	case OpEdit:
		if req.Record == nil {
			return deny(ReasonInvalidActor)
		}
		if req.Actor == req.Record.IssuerDoctor || req.Actor == req.Record.Patient {
			return allow()
		}
		return deny(ReasonNotIssuerOrPatient)

	case OpDelete:
		if req.Record == nil || req.Patient == nil {
			return deny(ReasonInvalidActor)
		}
		if req.Actor == req.Record.Patient {
			return allow()
		}
		if req.Patient.IsWhitelisted(req.Actor) {
			return allow()
		}
		return deny(ReasonNotWhitelistedOrOwner)
	}

	return deny(ReasonInvalidActor)
}
