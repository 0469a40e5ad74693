// Package livekit connects sessions to LiveKit rooms and issues the access
// tokens clients use to join them.
package livekit

import (
	"errors"
	"fmt"
	"time"

	"github.com/koscakluka/gisa/internal/utils"
	"github.com/livekit/protocol/auth"
)

const DefaultTokenTTL = 6 * time.Hour

var (
	ErrMissingCredentials = errors.New("livekit api key and secret are required")
	ErrMissingRoom        = errors.New("room name is required")
	ErrMissingParticipant = errors.New("participant name is required")
)

type Credentials struct {
	URL       string
	APIKey    string
	APISecret string
}

// TokenRequest describes who joins which room. Identity defaults to Name.
type TokenRequest struct {
	Room     string
	Identity string
	Name     string
	TTL      time.Duration
}

// IssueToken signs a token that lets the participant join the room, publish
// and subscribe to media and publish data.
func IssueToken(creds Credentials, req TokenRequest) (string, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return "", ErrMissingCredentials
	}
	if req.Room == "" {
		return "", ErrMissingRoom
	}
	if req.Name == "" && req.Identity == "" {
		return "", ErrMissingParticipant
	}
	if req.Identity == "" {
		req.Identity = req.Name
	}
	if req.Name == "" {
		req.Name = req.Identity
	}
	if req.TTL <= 0 {
		req.TTL = DefaultTokenTTL
	}

	grant := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           req.Room,
		CanPublish:     utils.Ptr(true),
		CanSubscribe:   utils.Ptr(true),
		CanPublishData: utils.Ptr(true),
	}
	token, err := auth.NewAccessToken(creds.APIKey, creds.APISecret).
		SetIdentity(req.Identity).
		SetName(req.Name).
		SetValidFor(req.TTL).
		AddGrant(grant).
		ToJWT()
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
