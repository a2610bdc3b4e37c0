package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signup-activation/internal/service"
)

// SignupHandler serves POST /signups.
type SignupHandler struct {
	Service *service.SignupService
}

func NewSignupHandler(s *service.SignupService) *SignupHandler { return &SignupHandler{Service: s} }

type signupResp struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// Create registers a pending signup.  The migration type may come from the
// body or, for links from the marketing pages, the ?migration= query.
func (h *SignupHandler) Create(c echo.Context) error {
	var req service.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   string(service.CodeValidation),
			Message: "invalid request body",
		})
	}
	if req.MigrationType == "" {
		req.MigrationType = c.QueryParam("migration")
	}

	res, err := h.Service.Signup(c.Request().Context(), req, c.RealIP())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, signupResp{
		Success: true,
		Token:   res.Token,
		Message: "Activation link sent to your email",
	})
}
