package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signup-activation/internal/model"
	"github.com/iliyamo/signup-activation/internal/utils"
)

// ActivationService redeems activation tokens.
type ActivationService struct {
	Store   SignupStore
	Log     *log.Logger
	Timeout time.Duration
	Now     func() time.Time
}

func NewActivationService(store SignupStore, logger *log.Logger, timeout time.Duration) *ActivationService {
	return &ActivationService{Store: store, Log: logger, Timeout: timeout, Now: time.Now}
}

// Activate validates raw and marks the matching signup used.  The checks run
// in a fixed order: shape, existence, prior use, expiry.  The final
// conditional update decides races, so at most one caller per token ever
// succeeds.
func (s *ActivationService) Activate(ctx context.Context, raw, sourceAddress string) (model.Signup, error) {
	if raw == "" {
		return model.Signup{}, newError(CodeInvalidFormat, msgMissingToken)
	}
	if !utils.ValidTokenFormat(raw) {
		s.reject(CodeInvalidFormat, "", sourceAddress)
		return model.Signup{}, newError(CodeInvalidFormat, msgInvalidFormat)
	}

	hash := utils.HashToken(raw)
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	rec, found, err := s.Store.FindByTokenHash(ctx, hash)
	if err != nil {
		s.fail(err, hash, sourceAddress)
		return model.Signup{}, storeUnavailable(err)
	}
	if !found {
		s.reject(CodeInvalidOrExpired, hash, sourceAddress)
		return model.Signup{}, newError(CodeInvalidOrExpired, msgInvalidOrExpired)
	}

	now := s.now()
	if !rec.Activatable(now) {
		code, msg := CodeExpired, msgExpired
		if rec.UsedAt != nil {
			code, msg = CodeAlreadyUsed, msgAlreadyUsed
		}
		s.reject(code, hash, sourceAddress)
		return model.Signup{}, newError(code, msg)
	}

	won, err := s.Store.MarkUsed(ctx, rec.ID, now)
	if err != nil {
		s.fail(err, hash, sourceAddress)
		return model.Signup{}, storeUnavailable(err)
	}
	if !won {
		s.reject(CodeAlreadyUsed, hash, sourceAddress)
		return model.Signup{}, newError(CodeAlreadyUsed, msgAlreadyUsed)
	}

	rec.UsedAt = &now
	rec.TokenHash = ""
	s.Log.Infoj(log.JSON{
		"event":      "activation_success",
		"signup_id":  rec.ID,
		"email":      rec.Email,
		"token_hash": hashPrefix(hash),
		"ip":         sourceAddress,
	})
	return rec, nil
}

func (s *ActivationService) reject(code Code, hash, source string) {
	s.Log.Warnj(log.JSON{
		"event":      "activation_error",
		"reason":     string(code),
		"token_hash": hashPrefix(hash),
		"ip":         source,
	})
}

func (s *ActivationService) fail(err error, hash, source string) {
	s.Log.Errorj(log.JSON{
		"event":      "activation_error",
		"reason":     string(CodeStoreUnavailable),
		"error":      err.Error(),
		"token_hash": hashPrefix(hash),
		"ip":         source,
	})
}

func (s *ActivationService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// hashPrefix shortens a token hash for logs.  The raw token is never logged.
func hashPrefix(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
