package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/service"
)

type UserHandler struct {
	auth *service.AuthService
}

func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Address  string `json:"address" binding:"required"`
	UserType string `json:"user_type" binding:"required"`
}

func (h *UserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.Signup(c.Request.Context(), &service.SignupCommand{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Address:  domain.Address(req.Address),
		UserType: domain.UserType(req.UserType),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, pair)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *UserHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pair)
}

type currentUserResponse struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Address  domain.Address  `json:"address"`
	UserType domain.UserType `json:"user_type"`
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.auth.CurrentUser(c.Request.Context(), mustClaims(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, currentUserResponse{
		Name:     user.Name,
		Email:    user.Email,
		Address:  user.Address,
		UserType: user.UserType,
	})
}
