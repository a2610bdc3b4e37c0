package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/gommon/log"
	"github.com/nyaruka/phonenumbers"

	"github.com/iliyamo/signup-activation/internal/model"
	"github.com/iliyamo/signup-activation/internal/notifier"
	"github.com/iliyamo/signup-activation/internal/repository"
)

// SignupStore is the persistence the signup and activation flows need.
type SignupStore interface {
	Create(ctx context.Context, attrs model.SignupAttributes, tokenHash, sourceAddress string, now time.Time) (string, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (model.Signup, bool, error)
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
}

// TokenIssuer produces a raw activation token and its storage hash.
type TokenIssuer interface {
	Issue() (raw, hash string, err error)
}

// maxTokenAttempts bounds retries on a token hash collision.
const maxTokenAttempts = 3

// defaultPhoneRegion is used to parse numbers written without a country code.
const defaultPhoneRegion = "US"

// SignupRequest is the signup form payload.
type SignupRequest struct {
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	CompanyName   string `json:"companyName"`
	CompanySize   string `json:"companySize"`
	Phone         string `json:"phone"`
	MigrationType string `json:"migrationType"`
}

// Normalize trims every field and lower-cases the email.
func (r *SignupRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.CompanySize = strings.TrimSpace(r.CompanySize)
	r.Phone = strings.TrimSpace(r.Phone)
	r.MigrationType = strings.ToLower(strings.TrimSpace(r.MigrationType))
}

// Validate checks the payload.  Phone is optional but must be a dialable
// number when present.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.CompanyName, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.CompanySize, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Phone, validation.Length(0, 32), validation.By(validPhone)),
	)
}

func validPhone(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := normalizePhone(s); err != nil {
		return errors.New("must be a valid phone number")
	}
	return nil
}

// normalizePhone returns the number in E.164 form.
func normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, defaultPhoneRegion)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// SignupResult is returned once per successful signup.  Token is the only
// copy of the raw credential the server ever hands out.
type SignupResult struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// SignupService creates pending signups and hands the activation link to
// the notifier.
type SignupService struct {
	Store         SignupStore
	Tokens        TokenIssuer
	Notifier      notifier.Notifier
	Log           *log.Logger
	ActivationURL string
	Timeout       time.Duration
	Now           func() time.Time
}

func NewSignupService(store SignupStore, tokens TokenIssuer, n notifier.Notifier, logger *log.Logger, activationURL string, timeout time.Duration) *SignupService {
	return &SignupService{
		Store:         store,
		Tokens:        tokens,
		Notifier:      n,
		Log:           logger,
		ActivationURL: activationURL,
		Timeout:       timeout,
		Now:           time.Now,
	}
}

// Signup validates req, stores a pending record and notifies the user.
// Notifier failures are logged and do not fail the signup.
func (s *SignupService) Signup(ctx context.Context, req SignupRequest, sourceAddress string) (SignupResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return SignupResult{}, validationError(err)
	}
	attrs := model.SignupAttributes{
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		CompanyName:   req.CompanyName,
		CompanySize:   req.CompanySize,
		MigrationType: model.NormalizeMigrationType(req.MigrationType),
	}
	if req.Phone != "" {
		p, _ := normalizePhone(req.Phone)
		attrs.Phone = &p
	}

	now := s.now()
	var (
		id, raw string
		err     error
	)
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		var hash string
		raw, hash, err = s.Tokens.Issue()
		if err != nil {
			s.logError("signup_error", err, sourceAddress)
			return SignupResult{}, &Error{Code: CodeStoreUnavailable, Message: "could not issue activation token", Err: err}
		}
		id, err = s.create(ctx, attrs, hash, sourceAddress, now)
		if !errors.Is(err, repository.ErrDuplicateToken) {
			break
		}
	}
	switch {
	case errors.Is(err, repository.ErrDuplicatePending):
		return SignupResult{}, newError(CodeDuplicatePending, msgDuplicatePending)
	case err != nil:
		s.logError("signup_error", err, sourceAddress)
		return SignupResult{}, storeUnavailable(err)
	}

	result := SignupResult{ID: id, Token: raw, ExpiresAt: now.Add(model.SignupTTL)}
	s.notify(ctx, attrs, result)

	s.Log.Infoj(log.JSON{
		"event":     "signup_success",
		"signup_id": id,
		"email":     attrs.Email,
		"company":   attrs.CompanyName,
		"migration": attrs.MigrationType,
		"ip":        sourceAddress,
	})
	return result, nil
}

func (s *SignupService) create(ctx context.Context, attrs model.SignupAttributes, hash, source string, now time.Time) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Store.Create(ctx, attrs, hash, source, now)
}

func (s *SignupService) notify(ctx context.Context, attrs model.SignupAttributes, result SignupResult) {
	if s.Notifier == nil {
		return
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	err := s.Notifier.Send(ctx, notifier.Notification{
		ToEmail:        attrs.Email,
		FirstName:      attrs.FirstName,
		ActivationLink: ActivationLink(s.ActivationURL, result.Token),
		MigrationType:  attrs.MigrationType,
		CompanyName:    attrs.CompanyName,
		ExpiresAt:      result.ExpiresAt,
	})
	if err != nil {
		s.Log.Warnj(log.JSON{
			"event":     string(CodeNotifierFailure),
			"signup_id": result.ID,
			"email":     attrs.Email,
			"error":     err.Error(),
		})
	}
}

func (s *SignupService) logError(event string, err error, source string) {
	s.Log.Errorj(log.JSON{"event": event, "error": err.Error(), "ip": source})
}

func (s *SignupService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// ActivationLink appends the token to base as the "token" query parameter.
func ActivationLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func validationError(err error) *Error {
	fields := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for k, v := range verrs {
			fields[k] = v.Error()
		}
	}
	return &Error{Code: CodeValidation, Message: "invalid signup data", Fields: fields, Err: err}
}
