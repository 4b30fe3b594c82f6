package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/identity"
	"github.com/vanessaachristy/mymedtrust-be/internal/service"
)

type IdentityHandler struct {
	identities *service.IdentityService
}

func NewIdentityHandler(identities *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identities: identities}
}

type primaryInfoRequest struct {
	Address     string `json:"address" binding:"required"`
	IC          string `json:"ic" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Gender      string `json:"gender" binding:"required"`
	Birthdate   string `json:"birthdate"`
	Email       string `json:"email"`
	HomeAddress string `json:"home_address"`
	Phone       string `json:"phone"`
}

func (r *primaryInfoRequest) toPrimaryInfo() identity.PrimaryInfo {
	return identity.PrimaryInfo{
		Address:     domain.Address(r.Address),
		IC:          r.IC,
		Name:        r.Name,
		Gender:      identity.Gender(r.Gender),
		Birthdate:   r.Birthdate,
		Email:       r.Email,
		HomeAddress: r.HomeAddress,
		Phone:       r.Phone,
	}
}

type createPatientRequest struct {
	primaryInfoRequest
	EmergencyContact string  `json:"emergency_contact"`
	EmergencyNumber  string  `json:"emergency_number"`
	BloodType        string  `json:"blood_type"`
	Height           float64 `json:"height"`
	Weight           float64 `json:"weight"`
}

func (h *IdentityHandler) CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.identities.CreatePatient(c.Request.Context(), &identity.CreatePatientCommand{
		PrimaryInfo:      req.toPrimaryInfo(),
		EmergencyContact: req.EmergencyContact,
		EmergencyNumber:  req.EmergencyNumber,
		BloodType:        identity.BloodType(req.BloodType),
		Height:           req.Height,
		Weight:           req.Weight,
	}, mustClaims(c).Address)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, created)
}

type createDoctorRequest struct {
	primaryInfoRequest
	Qualification string `json:"qualification"`
	Major         string `json:"major"`
}

func (h *IdentityHandler) CreateDoctor(c *gin.Context) {
	var req createDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.identities.CreateDoctor(c.Request.Context(), &identity.CreateDoctorCommand{
		PrimaryInfo:   req.toPrimaryInfo(),
		Qualification: req.Qualification,
		Major:         req.Major,
	}, mustClaims(c).Address)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, created)
}

func (h *IdentityHandler) GetPatient(c *gin.Context) {
	addr, ok := parseAddress(c, "address")
	if !ok {
		return
	}

	patient, err := h.identities.GetPatient(c.Request.Context(), addr)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, patient)
}

func (h *IdentityHandler) ListPatients(c *gin.Context) {
	patients, err := h.identities.ListPatients(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, patients)
}

func (h *IdentityHandler) GetDoctor(c *gin.Context) {
	addr, ok := parseAddress(c, "address")
	if !ok {
		return
	}

	doctor, err := h.identities.GetDoctor(c.Request.Context(), addr)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, doctor)
}

func (h *IdentityHandler) ListDoctors(c *gin.Context) {
	doctors, err := h.identities.ListDoctors(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, doctors)
}
