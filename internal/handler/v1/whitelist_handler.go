package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/service"
)

type WhitelistHandler struct {
	whitelist *service.WhitelistService
}

func NewWhitelistHandler(whitelist *service.WhitelistService) *WhitelistHandler {
	return &WhitelistHandler{whitelist: whitelist}
}

type whitelistRequest struct {
	Patient domain.Address `json:"patient" binding:"required"`
	Doctor  domain.Address `json:"doctor" binding:"required"`
}

func (h *WhitelistHandler) Add(c *gin.Context) {
	var req whitelistRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.whitelist.Add(c.Request.Context(), req.Patient, req.Doctor, mustClaims(c).Address)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, receipt)
}

func (h *WhitelistHandler) Remove(c *gin.Context) {
	var req whitelistRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.whitelist.Remove(c.Request.Context(), req.Patient, req.Doctor, mustClaims(c).Address)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, receipt)
}
