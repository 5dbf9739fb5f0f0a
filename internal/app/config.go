package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hackercall/backend/internal/phone"
	"github.com/hackercall/backend/internal/twilio"
)

type Config struct {
	HTTPAddr      string
	PublicBaseURL string `validate:"required,url"` // WEBHOOK_BASE_URL, reachable by Twilio

	// Twilio REST credentials (required)
	TwilioAccountSID string `validate:"required"`
	TwilioAuthToken  string `validate:"required"`
	TwilioFromNumber string `validate:"required,e164strict"`
	TwilioAPIBaseURL string

	// Browser voice tokens (optional; /token fails without them)
	TwilioAPIKeySID    string
	TwilioAPIKeySecret string
	TwilioTwiMLAppSID  string
	TokenTTL           time.Duration

	// Error monitoring
	SentryDSN   string
	Environment string
}

func LoadConfigFromEnv() Config {
	tokenTTL, err := time.ParseDuration(getenv("TOKEN_TTL", "1h"))
	if err != nil || tokenTTL <= 0 {
		tokenTTL = twilio.DefaultTokenTTL
	}
	if tokenTTL > twilio.MaxTokenTTL {
		tokenTTL = twilio.MaxTokenTTL
	}

	port := getenv("PORT", "3000")

	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":"+port),
		PublicBaseURL: getenv("WEBHOOK_BASE_URL", "http://localhost:"+port),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
		TwilioAPIBaseURL: getenv("TWILIO_API_BASE_URL", "https://api.twilio.com"),

		TwilioAPIKeySID:    os.Getenv("TWILIO_API_KEY_SID"),
		TwilioAPIKeySecret: os.Getenv("TWILIO_API_KEY_SECRET"),
		TwilioTwiMLAppSID:  os.Getenv("TWILIO_TWIML_APP_SID"),
		TokenTTL:           tokenTTL,

		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Environment: getenv("ENVIRONMENT", "development"),
	}
}

// Validate reports missing or malformed settings. The server refuses to
// start when this fails.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("e164strict", func(fl validator.FieldLevel) bool {
		return phone.IsE164(fl.Field().String())
	}); err != nil {
		return err
	}

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", envNames[fe.Field()]))
		case "e164strict":
			msgs = append(msgs, fmt.Sprintf("%s must be an E.164 number", envNames[fe.Field()]))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", envNames[fe.Field()]))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// TokensEnabled reports whether /token can mint credentials.
func (c Config) TokensEnabled() bool {
	return c.TwilioAPIKeySID != "" && c.TwilioAPIKeySecret != "" && c.TwilioTwiMLAppSID != ""
}

var envNames = map[string]string{
	"PublicBaseURL":    "WEBHOOK_BASE_URL",
	"TwilioAccountSID": "TWILIO_ACCOUNT_SID",
	"TwilioAuthToken":  "TWILIO_AUTH_TOKEN",
	"TwilioFromNumber": "TWILIO_FROM_NUMBER",
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
