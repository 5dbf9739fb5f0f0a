package twilio

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Twilio rejects Access Tokens that live longer than a day.
const (
	DefaultTokenTTL = time.Hour
	MaxTokenTTL     = 24 * time.Hour
)

// ErrTokenNotConfigured is returned when API key or TwiML app settings are missing.
var ErrTokenNotConfigured = errors.New("twilio: access token settings not configured")

// accessTokenClaims follows the Twilio Access Token layout.
type accessTokenClaims struct {
	jwt.RegisteredClaims
	Grants accessTokenGrants `json:"grants"`
}

type accessTokenGrants struct {
	Identity string      `json:"identity"`
	Voice    *voiceGrant `json:"voice,omitempty"`
}

type voiceGrant struct {
	Incoming *voiceIncoming `json:"incoming,omitempty"`
	Outgoing *voiceOutgoing `json:"outgoing,omitempty"`
}

type voiceIncoming struct {
	Allow bool `json:"allow"`
}

type voiceOutgoing struct {
	ApplicationSID string `json:"application_sid"`
}

// VoiceToken mints an Access Token for the browser voice SDK. The grant allows
// outgoing calls through the configured TwiML app only; incoming is left out.
func (c *Client) VoiceToken(identity string) (string, error) {
	if c.apiKeySID == "" || c.apiKeySecret == "" || c.twimlAppSID == "" {
		return "", ErrTokenNotConfigured
	}
	if identity == "" {
		return "", errors.New("twilio: identity is required")
	}

	now := c.now()
	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", c.apiKeySID, now.Unix()),
			Issuer:    c.apiKeySID,
			Subject:   c.accountSID,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenTTL)),
		},
		Grants: accessTokenGrants{
			Identity: identity,
			Voice: &voiceGrant{
				Outgoing: &voiceOutgoing{ApplicationSID: c.twimlAppSID},
			},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = "twilio-fpa;v=1"
	signed, err := token.SignedString([]byte(c.apiKeySecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func clampTokenTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0:
		return DefaultTokenTTL
	case ttl > MaxTokenTTL:
		return MaxTokenTTL
	default:
		return ttl
	}
}
