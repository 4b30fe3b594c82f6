package identity

import (
	"strings"
	"time"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

type BloodType string

const (
	BloodTypeA  BloodType = "A"
	BloodTypeB  BloodType = "B"
	BloodTypeAB BloodType = "AB"
	BloodTypeO  BloodType = "O"
)

func (b BloodType) IsValid() bool {
	switch b {
	case BloodTypeA, BloodTypeB, BloodTypeAB, BloodTypeO:
		return true
	}
	return false
}

// PrimaryInfo is the identity block every ledger account carries,
// immutable once created.
type PrimaryInfo struct {
	Address     domain.Address `json:"address"`
	IC          string         `json:"ic"`
	Name        string         `json:"name"`
	Gender      Gender         `json:"gender"`
	Birthdate   string         `json:"birthdate"`
	Email       string         `json:"email"`
	HomeAddress string         `json:"home_address"`
	Phone       string         `json:"phone"`
	UserSince   time.Time      `json:"user_since"`
}

func (p *PrimaryInfo) FullName() string {
	return strings.TrimSpace(p.Name)
}

// Patient is the ledger's view of a patient: identity, vitals, the
// whitelist relation, and the ordered record index.
type Patient struct {
	PrimaryInfo PrimaryInfo `json:"primary_info"`

	EmergencyContact string    `json:"emergency_contact"`
	EmergencyNumber  string    `json:"emergency_number"`
	BloodType        BloodType `json:"blood_type"`
	Height           float64   `json:"height"`
	Weight           float64   `json:"weight"`

	// Whitelist holds the doctor addresses authorized to manage this
	// patient's records, in whitelisting order.
	Whitelist []domain.Address `json:"whitelist"`

	// Records is the ordered index of this patient's record IDs.
	Records []string `json:"records"`
}

func (p *Patient) Address() domain.Address {
	return p.PrimaryInfo.Address
}

// IsWhitelisted reports whether the doctor may issue records for this patient.
func (p *Patient) IsWhitelisted(doctor domain.Address) bool {
	for _, d := range p.Whitelist {
		if d == doctor {
			return true
		}
	}
	return false
}

// HasRecord reports whether the record ID is already in the patient's index.
func (p *Patient) HasRecord(id string) bool {
	for _, r := range p.Records {
		if r == id {
			return true
		}
	}
	return false
}

type Doctor struct {
	PrimaryInfo PrimaryInfo `json:"primary_info"`

	Qualification string `json:"qualification"`
	Major         string `json:"major"`
}

func (d *Doctor) Address() domain.Address {
	return d.PrimaryInfo.Address
}

type CreatePatientCommand struct {
	PrimaryInfo      PrimaryInfo
	EmergencyContact string
	EmergencyNumber  string
	BloodType        BloodType
	Height           float64
	Weight           float64
}

type CreateDoctorCommand struct {
	PrimaryInfo   PrimaryInfo
	Qualification string
	Major         string
}
