package livekit

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestIssueTokenGrantsRoomAccess(t *testing.T) {
	creds := Credentials{APIKey: "devkey", APISecret: "a-secret-that-is-long-enough-for-hmac"}

	token, err := IssueToken(creds, TokenRequest{Room: "atendimento", Name: "maria"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	claims := decodeClaims(t, token)
	if claims.Issuer != "devkey" {
		t.Fatalf("expected issuer devkey, got %q", claims.Issuer)
	}
	if claims.Subject != "maria" || claims.Name != "maria" {
		t.Fatalf("expected identity and name maria, got %q and %q", claims.Subject, claims.Name)
	}
	if claims.Video.Room != "atendimento" || !claims.Video.RoomJoin {
		t.Fatalf("expected room join for atendimento, got %+v", claims.Video)
	}
	if !claims.Video.CanPublish || !claims.Video.CanSubscribe || !claims.Video.CanPublishData {
		t.Fatalf("expected publish, subscribe and data grants, got %+v", claims.Video)
	}
	if claims.Expiry-claims.NotBefore != int64(DefaultTokenTTL.Seconds()) {
		t.Fatalf("expected a %s lifetime, got %ds", DefaultTokenTTL, claims.Expiry-claims.NotBefore)
	}
}

func TestIssueTokenValidatesInput(t *testing.T) {
	creds := Credentials{APIKey: "devkey", APISecret: "secret"}

	testCases := []struct {
		name     string
		creds    Credentials
		request  TokenRequest
		expected error
	}{
		{name: "missing credentials", creds: Credentials{}, request: TokenRequest{Room: "r", Name: "n"}, expected: ErrMissingCredentials},
		{name: "missing room", creds: creds, request: TokenRequest{Name: "n"}, expected: ErrMissingRoom},
		{name: "missing participant", creds: creds, request: TokenRequest{Room: "r"}, expected: ErrMissingParticipant},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := IssueToken(testCase.creds, testCase.request); !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
}

func TestAgentIdentity(t *testing.T) {
	if got := AgentIdentity("abc"); got != "agent-abc" {
		t.Fatalf("expected agent-abc, got %q", got)
	}
}

type tokenClaims struct {
	Issuer    string `json:"iss"`
	Subject   string `json:"sub"`
	Name      string `json:"name"`
	NotBefore int64  `json:"nbf"`
	Expiry    int64  `json:"exp"`
	Video     struct {
		RoomJoin       bool   `json:"roomJoin"`
		Room           string `json:"room"`
		CanPublish     bool   `json:"canPublish"`
		CanSubscribe   bool   `json:"canSubscribe"`
		CanPublishData bool   `json:"canPublishData"`
	} `json:"video"`
}

func decodeClaims(t *testing.T, token string) tokenClaims {
	t.Helper()

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected a three-part JWT, got %d parts", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("failed to decode token payload: %v", err)
	}
	var claims tokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("failed to parse token payload: %v", err)
	}
	return claims
}
