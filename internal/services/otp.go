package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/foodloop-labs/foodloop-backend/internal/models"
	"github.com/foodloop-labs/foodloop-backend/internal/utils"
)

const (
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 3
)

// EmailSender delivers a verification code over SMTP.
type EmailSender interface {
	SendEmail(to, subject, html string) error
}

// SMSSender delivers a verification code over SMS.
type SMSSender interface {
	SendSMS(to, body string) error
}

// OTPService issues and verifies short-lived single-use verification codes
// bound to an email address or E.164 phone number.
type OTPService struct {
	store OTPStore
	email EmailSender
	sms   SMSSender
	now   func() time.Time
}

// NewOTPService creates a new OTP service. Either transport may be nil;
// issuance for identifiers needing a missing transport fails with
// ErrDeliveryFailed.
func NewOTPService(store OTPStore, email EmailSender, sms SMSSender) *OTPService {
	return &OTPService{
		store: store,
		email: email,
		sms:   sms,
		now:   time.Now,
	}
}

// Issue generates a fresh 6-digit code for the identifier, stores it with a
// 10-minute expiry (overwriting any prior record), and hands it to the
// matching transport. A transport failure is a user-visible error: the
// stored record is removed and ErrDeliveryFailed returned, so no live code
// exists that was never delivered.
func (s *OTPService) Issue(identifier string) (string, error) {
	if identifier == "" {
		return "", &models.ValidationError{Message: "identifier is required"}
	}

	code, err := utils.GenerateOTPCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	s.store.Save(identifier, models.OTPRecord{
		Code:      code,
		ExpiresAt: s.now().Add(otpTTL),
		Attempts:  0,
	})

	if err := s.deliver(identifier, code); err != nil {
		s.store.Delete(identifier)
		return "", fmt.Errorf("%w: %v", models.ErrDeliveryFailed, err)
	}
	return code, nil
}

// Verify checks suppliedCode against the identifier's live record. The
// whole check-and-consume runs inside the store's critical section for the
// identifier, so a valid code can be spent exactly once even under
// concurrent verify calls.
func (s *OTPService) Verify(identifier, suppliedCode string) error {
	verdict := models.ErrOTPNotFound
	s.store.Mutate(identifier, func(rec *models.OTPRecord) *models.OTPRecord {
		switch {
		case rec == nil:
			verdict = models.ErrOTPNotFound
			return nil
		case rec.Expired(s.now()):
			verdict = models.ErrOTPExpired
			return nil
		case rec.Attempts >= otpMaxAttempts:
			verdict = models.ErrOTPAttemptsExceeded
			return nil
		case rec.Code != suppliedCode:
			rec.Attempts++
			verdict = models.ErrOTPMismatch
			return rec
		default:
			verdict = nil
			return nil
		}
	})
	return verdict
}

func (s *OTPService) deliver(identifier, code string) error {
	if strings.Contains(identifier, "@") {
		if s.email == nil {
			return fmt.Errorf("email transport not configured")
		}
		html := fmt.Sprintf(
			"<p>Your verification code is: <strong>%s</strong></p><p>This code will expire in 10 minutes.</p>",
			code,
		)
		return s.email.SendEmail(identifier, "Your Email Verification Code", html)
	}

	if s.sms == nil {
		return fmt.Errorf("sms transport not configured")
	}
	return s.sms.SendSMS(identifier, fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code))
}
