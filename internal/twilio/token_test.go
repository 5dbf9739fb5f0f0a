package twilio

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTokenClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(Config{
		AccountSID:   "ACtest",
		AuthToken:    "secret",
		APIKeySID:    "SKtest",
		APIKeySecret: "keysecret",
		TwiMLAppSID:  "APtest",
		TokenTTL:     30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestVoiceToken(t *testing.T) {
	c := newTokenClient(t)
	fixed := time.Now().Truncate(time.Second)
	c.now = func() time.Time { return fixed }

	signed, err := c.VoiceToken("hacker_42")
	if err != nil {
		t.Fatalf("VoiceToken: %v", err)
	}

	parsed, err := jwt.ParseWithClaims(signed, &accessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			t.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte("keysecret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not verify: %v", err)
	}

	if cty := parsed.Header["cty"]; cty != "twilio-fpa;v=1" {
		t.Errorf("cty = %v, want twilio-fpa;v=1", cty)
	}

	claims := parsed.Claims.(*accessTokenClaims)
	if claims.Issuer != "SKtest" {
		t.Errorf("iss = %q, want SKtest", claims.Issuer)
	}
	if claims.Subject != "ACtest" {
		t.Errorf("sub = %q, want ACtest", claims.Subject)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
	if got := claims.ExpiresAt.Time; !got.Equal(fixed.Add(30 * time.Minute)) {
		t.Errorf("exp = %v, want %v", got, fixed.Add(30*time.Minute))
	}
	if claims.Grants.Identity != "hacker_42" {
		t.Errorf("identity = %q", claims.Grants.Identity)
	}
	if claims.Grants.Voice == nil || claims.Grants.Voice.Outgoing == nil {
		t.Fatal("voice outgoing grant missing")
	}
	if claims.Grants.Voice.Outgoing.ApplicationSID != "APtest" {
		t.Errorf("application_sid = %q", claims.Grants.Voice.Outgoing.ApplicationSID)
	}
	if claims.Grants.Voice.Incoming != nil {
		t.Error("incoming grant should be omitted")
	}
}

func TestVoiceTokenNotConfigured(t *testing.T) {
	c, err := NewClient(Config{AccountSID: "ACtest", AuthToken: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.VoiceToken("hacker_1"); !errors.Is(err, ErrTokenNotConfigured) {
		t.Errorf("VoiceToken error = %v, want ErrTokenNotConfigured", err)
	}
}

func TestVoiceTokenRequiresIdentity(t *testing.T) {
	if _, err := newTokenClient(t).VoiceToken(""); err == nil {
		t.Error("VoiceToken should fail without identity")
	}
}

func TestClampTokenTTL(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero uses default", 0, DefaultTokenTTL},
		{"negative uses default", -time.Minute, DefaultTokenTTL},
		{"within range", 15 * time.Minute, 15 * time.Minute},
		{"at maximum", 24 * time.Hour, 24 * time.Hour},
		{"above maximum", 72 * time.Hour, MaxTokenTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampTokenTTL(tt.in); got != tt.want {
				t.Errorf("clampTokenTTL(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVoiceTokenExpiryCapped(t *testing.T) {
	c, err := NewClient(Config{
		AccountSID:   "ACtest",
		AuthToken:    "secret",
		APIKeySID:    "SKtest",
		APIKeySecret: "keysecret",
		TwiMLAppSID:  "APtest",
		TokenTTL:     7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	fixed := time.Now().Truncate(time.Second)
	c.now = func() time.Time { return fixed }

	signed, err := c.VoiceToken("hacker_1")
	if err != nil {
		t.Fatalf("VoiceToken: %v", err)
	}
	claims := &accessTokenClaims{}
	if _, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("keysecret"), nil
	}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := claims.ExpiresAt.Time; !got.Equal(fixed.Add(MaxTokenTTL)) {
		t.Errorf("exp = %v, want %v", got, fixed.Add(MaxTokenTTL))
	}
}
