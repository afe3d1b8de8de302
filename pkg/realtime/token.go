package realtime

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VideoGrants mirrors the room service's token grant claims.
type VideoGrants struct {
	Room           string `json:"room,omitempty"`
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	RoomCreate     bool   `json:"roomCreate,omitempty"`
	RoomList       bool   `json:"roomList,omitempty"`
	CanPublish     bool   `json:"canPublish,omitempty"`
	CanSubscribe   bool   `json:"canSubscribe,omitempty"`
	CanPublishData bool   `json:"canPublishData,omitempty"`
}

// TokenClaims is the full signed claim set.
type TokenClaims struct {
	Video VideoGrants `json:"video"`
	Name  string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// MintToken signs a room-scoped access token for the given identity.
func MintToken(apiKey, apiSecret, identity string, grants VideoGrants, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}

	now := time.Now()
	claims := &TokenClaims{
		Video: grants,
		Name:  identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(apiSecret))
}

// ParticipantGrants returns the grant set handed to a joining student.
func ParticipantGrants(room string) VideoGrants {
	return VideoGrants{
		Room:           room,
		RoomJoin:       true,
		CanPublish:     true,
		CanSubscribe:   true,
		CanPublishData: true,
	}
}

// AgentGrants returns the grant set used by the tutor agent.
func AgentGrants(room string) VideoGrants {
	return VideoGrants{
		Room:           room,
		RoomJoin:       true,
		CanPublish:     true,
		CanSubscribe:   true,
		CanPublishData: true,
	}
}

// AdminGrants covers room provisioning calls.
func AdminGrants() VideoGrants {
	return VideoGrants{RoomCreate: true, RoomList: true}
}
