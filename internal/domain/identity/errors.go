package identity

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrInvalidAddress       = errors.New("address invalid")
	ErrPatientAlreadyExists = errors.New("patient already exists")
	ErrDoctorAlreadyExists  = errors.New("doctor already exists")
)
