package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload the external auth system issues. Subject is
// the member id.
type Claims struct {
	FamilyID int64  `json:"fam"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens against the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token and returns the caller's identity.
func (v *Verifier) Verify(raw string) (AuthContext, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return AuthContext{}, fmt.Errorf("parse token: %w", err)
	}

	memberID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return AuthContext{}, fmt.Errorf("parse subject: %w", err)
	}
	if claims.FamilyID == 0 {
		return AuthContext{}, fmt.Errorf("token missing family claim")
	}

	return AuthContext{
		MemberID: memberID,
		FamilyID: claims.FamilyID,
		Role:     claims.Role,
	}, nil
}

// Sign mints a token for the given identity. Used by tests and local
// development; production tokens come from the auth collaborator.
func (v *Verifier) Sign(ac AuthContext, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		FamilyID: ac.FamilyID,
		Role:     ac.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(ac.MemberID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
