package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// WalletClaims defines the custom claims carried by API bearer tokens.
// The TSS core trusts this identity as resolved by the auth layer.
type WalletClaims struct {
	jwt.RegisteredClaims
	WalletID   string `json:"wallet_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Email      string `json:"email,omitempty"`
}

// JWTManager handles JWT generation and validation
type JWTManager struct {
	secretKey     []byte
	issuer        string
	tokenDuration time.Duration
}

// NewJWTManager creates a new JWTManager
func NewJWTManager(secretKey string, issuer string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		tokenDuration: tokenDuration,
	}
}

// Generate creates a new JWT token for the given wallet identity
func (m *JWTManager) Generate(walletID, customerID, email string) (string, error) {
	claims := WalletClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    m.issuer,
			Subject:   walletID,
		},
		WalletID:   walletID,
		CustomerID: customerID,
		Email:      email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Validate validates the JWT token and returns the claims
func (m *JWTManager) Validate(tokenString string) (*WalletClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &WalletClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}

	claims, ok := token.Claims.(*WalletClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
