package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/service"
)

type AuditHandler struct {
	audit *service.AuditService
}

func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// History serves an actor's audit trail. Admins may read anyone's;
// everyone else only their own.
func (h *AuditHandler) History(c *gin.Context) {
	addr, ok := parseAddress(c, "address")
	if !ok {
		return
	}

	claims := mustClaims(c)
	if claims.UserType != domain.UserTypeAdmin && claims.Address != addr {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
		return
	}

	limit := parseQueryInt(c, "limit", 100)
	entries, err := h.audit.History(c.Request.Context(), addr, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, entries)
}
