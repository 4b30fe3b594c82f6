package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/identity"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
	"github.com/vanessaachristy/mymedtrust-be/internal/ledger"
	"github.com/vanessaachristy/mymedtrust-be/internal/service"
	"github.com/vanessaachristy/mymedtrust-be/internal/store"
	"github.com/vanessaachristy/mymedtrust-be/pkg/auth"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var missingErr *document.MissingFieldsError
	if errors.As(err, &missingErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "document is missing required fields",
			Fields: missingErr.Fields,
		})
		return
	}

	var authzErr *service.UnauthorizedError
	if errors.As(err, &authzErr) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error: authzErr.Error(),
			Code:  string(authzErr.Reason),
		})
		return
	}

	var partialErr *service.PartialFailureError
	if errors.As(err, &partialErr) {
		// The write landed on one side only. Not retryable as-is; the
		// reconciler owns the repair, the caller gets the full picture.
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: partialErr.Error(),
			Code:  "PARTIAL_FAILURE",
			Details: map[string]string{
				"record_id": partialErr.RecordID,
				"operation": string(partialErr.Operation),
			},
		})
		return
	}

	switch {
	case errors.Is(err, record.ErrRecordNotFound),
		errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, identity.ErrPatientNotFound),
		errors.Is(err, identity.ErrDoctorNotFound),
		errors.Is(err, store.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, record.ErrDuplicateRecord),
		errors.Is(err, identity.ErrPatientAlreadyExists),
		errors.Is(err, identity.ErrDoctorAlreadyExists),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrAddressTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	case errors.Is(err, record.ErrDiverged):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: err.Error(),
			Code:  "RECORD_DIVERGED",
		})

	case errors.Is(err, record.ErrInvalidStatus),
		errors.Is(err, document.ErrUnknownKind),
		errors.Is(err, identity.ErrInvalidAddress),
		errors.Is(err, ledger.ErrRejected):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, ledger.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "ledger is unreachable",
			Code:  "LEDGER_UNAVAILABLE",
		})

	case errors.Is(err, store.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "document store is unreachable",
			Code:  "STORE_UNAVAILABLE",
		})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseAddress(c *gin.Context, param string) (domain.Address, bool) {
	addr := domain.Address(c.Param(param))
	if !addr.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a 0x-prefixed 40 hex character address"})
		return "", false
	}
	return addr, true
}

func parseKind(c *gin.Context, param string) (document.Kind, bool) {
	kind := document.Kind(c.Param(param))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be one of observation, condition, allergy, medication"})
		return "", false
	}
	return kind, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
