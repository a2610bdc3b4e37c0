package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signup-activation/internal/model"
	"github.com/iliyamo/signup-activation/internal/service"
)

// ActivationHandler serves GET and POST /activations.
type ActivationHandler struct {
	Service *service.ActivationService
}

func NewActivationHandler(s *service.ActivationService) *ActivationHandler {
	return &ActivationHandler{Service: s}
}

type activationReq struct {
	Token string `json:"token" query:"token" form:"token"`
}

type activatedUser struct {
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	CompanyName   string     `json:"companyName"`
	CompanySize   string     `json:"companySize"`
	MigrationType string     `json:"migrationType"`
	ActivatedAt   *time.Time `json:"activatedAt"`
}

type activationResp struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	User    activatedUser `json:"user"`
}

// Activate redeems a token taken from ?token= (GET) or the JSON body (POST).
func (h *ActivationHandler) Activate(c echo.Context) error {
	var req activationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   string(service.CodeInvalidFormat),
			Message: "invalid request body",
		})
	}
	if req.Token == "" {
		req.Token = c.QueryParam("token")
	}

	rec, err := h.Service.Activate(c.Request().Context(), req.Token, c.RealIP())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, activationResp{
		Success: true,
		Message: "Account activated successfully",
		User:    publicUser(rec),
	})
}

func publicUser(s model.Signup) activatedUser {
	return activatedUser{
		Email:         s.Email,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		CompanyName:   s.CompanyName,
		CompanySize:   s.CompanySize,
		MigrationType: s.MigrationType,
		ActivatedAt:   s.UsedAt,
	}
}
