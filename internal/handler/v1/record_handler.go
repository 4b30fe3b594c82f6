package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
	"github.com/vanessaachristy/mymedtrust-be/internal/service"
)

type RecordHandler struct {
	records *service.RecordService
}

func NewRecordHandler(records *service.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

type createRecordRequest struct {
	Patient        domain.Address   `json:"patient" binding:"required"`
	Doctor         domain.Address   `json:"doctor" binding:"required"`
	Kind           document.Kind    `json:"kind" binding:"required"`
	Payload        document.Payload `json:"payload" binding:"required"`
	AdditionalNote string           `json:"additional_note"`
}

func (h *RecordHandler) Create(c *gin.Context) {
	var req createRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	summary, err := h.records.Create(c.Request.Context(), &record.CreateRecordCommand{
		Patient: req.Patient,
		Doctor:  req.Doctor,
		Kind:    req.Kind,
		Payload: req.Payload,
		Actor:   mustClaims(c).Address,
		Note:    req.AdditionalNote,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, summary)
}

type editRecordRequest struct {
	Payload        document.Payload `json:"payload" binding:"required"`
	Status         *record.Status   `json:"status" binding:"required"`
	AdditionalNote string           `json:"additional_note"`
}

func (h *RecordHandler) Edit(c *gin.Context) {
	var req editRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	summary, err := h.records.Edit(c.Request.Context(), &record.EditRecordCommand{
		ID:      c.Param("id"),
		Payload: req.Payload,
		Status:  *req.Status,
		Actor:   mustClaims(c).Address,
		Note:    req.AdditionalNote,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, summary)
}

func (h *RecordHandler) Delete(c *gin.Context) {
	err := h.records.Delete(c.Request.Context(), c.Param("id"), mustClaims(c).Address)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse[any]{Message: "record deleted"})
}

func (h *RecordHandler) Get(c *gin.Context) {
	summary, err := h.records.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, summary)
}

func (h *RecordHandler) Verify(c *gin.Context) {
	result, err := h.records.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{
		"id":     c.Param("id"),
		"verify": result,
	})
}

// ListByPatient serves a patient's full record index, optionally
// filtered by kind via the query string.
func (h *RecordHandler) ListByPatient(c *gin.Context) {
	addr, ok := parseAddress(c, "address")
	if !ok {
		return
	}

	var (
		summaries []*record.Summary
		err       error
	)
	if rawKind := c.Query("kind"); rawKind != "" {
		summaries, err = h.records.ListPatientRecordsByKind(c.Request.Context(), addr, document.Kind(rawKind))
	} else {
		summaries, err = h.records.ListPatientRecords(c.Request.Context(), addr)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, summaries)
}

// ListDocuments serves one collection's documents without the ledger
// join. Useful for browsing; anything trust-bearing goes through the
// verified endpoints.
func (h *RecordHandler) ListDocuments(c *gin.Context) {
	kind, ok := parseKind(c, "kind")
	if !ok {
		return
	}

	docs, err := h.records.ListDocumentsByKind(c.Request.Context(), kind)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, docs)
}

// Stranded exposes unresolved partial failures to operators.
func (h *RecordHandler) Stranded(c *gin.Context) {
	respondOK(c, h.records.StrandedAttempts())
}
