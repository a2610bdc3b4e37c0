package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signup-activation/internal/middleware"
	"github.com/iliyamo/signup-activation/internal/model"
)

// SignupLister is the read side the admin listing needs.
type SignupLister interface {
	ListByEmail(ctx context.Context, email string) ([]model.Signup, error)
}

// Purger runs one rate-limit cleanup pass.
type Purger interface {
	RunOnce(ctx context.Context) (int64, error)
}

// AdminHandler serves the operator endpoints under /admin.
type AdminHandler struct {
	Signups SignupLister
	Purger  Purger
	Log     *log.Logger
	Now     func() time.Time
}

func NewAdminHandler(signups SignupLister, purger Purger, logger *log.Logger) *AdminHandler {
	return &AdminHandler{Signups: signups, Purger: purger, Log: logger, Now: time.Now}
}

type adminSignup struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	CompanyName   string     `json:"companyName"`
	CompanySize   string     `json:"companySize"`
	MigrationType string     `json:"migrationType"`
	Phone         *string    `json:"phone,omitempty"`
	SourceAddress string     `json:"sourceAddress"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	UsedAt        *time.Time `json:"usedAt"`
}

// ListSignups returns every signup for ?email= with its derived state.
func (h *AdminHandler) ListSignups(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorBody{
			Error:   "validation_error",
			Message: "email query parameter is required",
			Fields:  map[string]string{"email": "cannot be blank"},
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rows, err := h.Signups.ListByEmail(ctx, email)
	if err != nil {
		h.Log.Errorj(log.JSON{"event": "admin_list_failed", "actor": middleware.ActorID(c), "error": err.Error()})
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "Internal server error"})
	}

	now := h.Now().UTC()
	out := make([]adminSignup, 0, len(rows))
	for _, s := range rows {
		out = append(out, adminSignup{
			ID:            s.ID,
			Email:         s.Email,
			FirstName:     s.FirstName,
			LastName:      s.LastName,
			CompanyName:   s.CompanyName,
			CompanySize:   s.CompanySize,
			MigrationType: s.MigrationType,
			Phone:         s.Phone,
			SourceAddress: s.SourceAddress,
			State:         s.State(now),
			CreatedAt:     s.CreatedAt,
			ExpiresAt:     s.ExpiresAt,
			UsedAt:        s.UsedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "signups": out})
}

// PurgeRateLimits runs the stale counter cleanup now.
func (h *AdminHandler) PurgeRateLimits(c echo.Context) error {
	n, err := h.Purger.RunOnce(c.Request().Context())
	if err != nil {
		h.Log.Errorj(log.JSON{"event": "ratelimit_purge_failed", "actor": middleware.ActorID(c), "error": err.Error()})
		return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "Internal server error"})
	}
	h.Log.Infoj(log.JSON{"event": "ratelimit_purge", "actor": middleware.ActorID(c), "removed": n})
	return c.JSON(http.StatusOK, echo.Map{"success": true, "removed": n})
}
