package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/libertypfc/Hockeybot-sub000/pkg/kvstore"
)

var ErrInvalidToken = errors.New("invalid token")

type AuthService struct {
	KV     kvstore.KVStore
	Secret []byte
	TTL    time.Duration
}

func New(kv kvstore.KVStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		KV:     kv,
		Secret: []byte(secret),
		TTL:    ttl,
	}
}

func sessionKey(actorID string) string {
	return "session_token_" + actorID
}

// GenerateToken signs a token for actor and whitelists it, one entry per
// device.
func (a *AuthService) GenerateToken(actor Actor) (string, error) {
	if actor.ID == "" {
		return "", errors.New("actor id is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     actor.ID,
		"team_id": actor.TeamID,
		"admin":   actor.Admin,
		"exp":     time.Now().Add(a.TTL).Unix(),
	})

	tokenString, err := token.SignedString(a.Secret)
	if err != nil {
		return "", err
	}

	if err := a.KV.RPush(sessionKey(actor.ID), tokenString); err != nil {
		return "", fmt.Errorf("whitelist token: %w", err)
	}
	if err := a.KV.Expire(sessionKey(actor.ID), a.TTL); err != nil {
		return "", fmt.Errorf("whitelist token: %w", err)
	}
	return tokenString, nil
}

func (a *AuthService) ValidateToken(tokenString string) (Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.Secret, nil
	})
	if err != nil {
		return Actor{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Actor{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Actor{}, ErrInvalidToken
	}
	teamID, _ := claims["team_id"].(string)
	admin, _ := claims["admin"].(bool)
	return Actor{ID: sub, TeamID: teamID, Admin: admin}, nil
}

// RevokeToken drops the token from the whitelist; it is refused from then on
// even before it expires.
func (a *AuthService) RevokeToken(actorID string, tokenString string) error {
	return a.KV.LRem(sessionKey(actorID), 1, tokenString)
}

func (a *AuthService) CheckIfTokenIsWhiteListed(actorID string, tokenString string) bool {
	tokens, err := a.KV.LRange(sessionKey(actorID), 0, -1)
	if err != nil {
		return false
	}
	for _, t := range tokens {
		if t == tokenString {
			return true
		}
	}
	return false
}
