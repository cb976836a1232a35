// Package auth mints and verifies the access tokens that identify players
// to the gRPC service.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the player identity. The subject is the player UUID.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Perms []string `json:"perms,omitempty"`
	Op    bool     `json:"op,omitempty"`
}

func GenerateToken(p models.Player, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Name:  p.Name,
		Perms: p.Permissions,
		Op:    p.Op,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// PlayerFromToken verifies tokenString and returns the player it names.
// Every failure wraps common.ErrInvalidToken.
func PlayerFromToken(tokenString string, secretKey []byte) (models.Player, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Player{}, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return models.Player{}, common.ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Player{}, fmt.Errorf("%w: bad subject: %w", common.ErrInvalidToken, err)
	}
	return models.Player{ID: id, Name: claims.Name, Permissions: claims.Perms, Op: claims.Op}, nil
}

// Issuer mints tokens with a fixed key and lifetime.
type Issuer struct {
	secret   []byte
	validity time.Duration
}

func NewIssuer(secret []byte, validity time.Duration) *Issuer {
	return &Issuer{secret: secret, validity: validity}
}

func (i *Issuer) Issue(p models.Player) (string, error) {
	return GenerateToken(p, i.secret, i.validity)
}
