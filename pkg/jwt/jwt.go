// Package jwt emite y valida los tokens Bearer de la API de facturación.
// La API no gestiona usuarios: el rol de facturación viaja firmado en el token.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles de facturación electrónica reconocidos en el claim "role".
const (
	RoleAdmin      = "admin"      // configura el emisor
	RoleFacturador = "facturador" // emite y autoriza facturas
	RoleAuditor    = "auditor"    // solo consulta
)

var (
	ErrEmptySecret  = errors.New("jwt: secret vacío")
	ErrUnknownRole  = errors.New("jwt: rol de facturación desconocido")
	ErrInvalidToken = errors.New("jwt: token inválido")
)

// Identity es lo que el token afirma sobre quien llama.
type Identity struct {
	UserID    string
	CompanyID string
	Role      string
}

// Claims claims registrados más la identidad de facturación.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

// ValidRole indica si role es uno de los roles de facturación.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleFacturador, RoleAuditor:
		return true
	}
	return false
}

// Generate firma con HS256 un token para id que vence en ttl.
// Un ttl negativo produce un token ya vencido.
func Generate(secret, issuer string, id Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if !ValidRole(id.Role) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, id.Role)
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    id.UserID,
		CompanyID: id.CompanyID,
		Role:      id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma, vencimiento y, si issuer no está vacío, el emisor del token.
// Un rol fuera de los de facturación invalida el token.
func Parse(secret, issuer, tokenString string) (Identity, error) {
	if secret == "" {
		return Identity{}, ErrEmptySecret
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if !ValidRole(claims.Role) {
		return Identity{}, fmt.Errorf("%w: %w: %q", ErrInvalidToken, ErrUnknownRole, claims.Role)
	}
	return Identity{UserID: claims.UserID, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}
