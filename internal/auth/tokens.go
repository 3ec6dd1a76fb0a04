package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	claimRole  = "role"
	claimEmail = "email"
)

// Claims are the identity facts carried by an access token.
type Claims struct {
	UserID string
	Role   string
	Email  string
}

// TokenValidator checks issuer, audience, time bounds and algorithm of parsed tokens.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate ensures tok satisfies the validator's requirements at now.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(claimRole),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

// Issuer signs HS256 access tokens and parses them back into Claims.
type Issuer struct {
	Secret    []byte
	TTL       time.Duration
	Validator TokenValidator
	Now       func() time.Time
}

func (i Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// Sign returns a compact token for c and its expiry.
func (i Issuer) Sign(c Claims) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.TTL)
	tok, err := jwt.NewBuilder().
		Subject(c.UserID).
		Issuer(i.Validator.Issuer).
		Audience([]string{i.Validator.Audience}).
		IssuedAt(now).
		NotBefore(now.Add(-i.Validator.ClockSkew)).
		Expiration(expiresAt).
		Claim(claimRole, c.Role).
		Claim(claimEmail, c.Email).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, i.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// Parse verifies token and extracts its claims.
func (i Issuer) Parse(token string) (Claims, error) {
	algorithm, err := tokenAlgorithm(token)
	if err != nil {
		return Claims{}, err
	}
	if i.Validator.Algorithm != "" && algorithm != i.Validator.Algorithm {
		return Claims{}, fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}
	parsed, err := jwt.ParseString(token, jwt.WithKey(algorithm, i.Secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, err
	}
	if err := i.Validator.Validate(parsed, algorithm, i.now()); err != nil {
		return Claims{}, err
	}
	c := Claims{UserID: parsed.Subject()}
	if v, ok := parsed.Get(claimRole); ok {
		c.Role, _ = v.(string)
	}
	if v, ok := parsed.Get(claimEmail); ok {
		c.Email, _ = v.(string)
	}
	if c.UserID == "" || c.Role == "" {
		return Claims{}, errors.New("auth: token missing subject or role")
	}
	return c, nil
}

func tokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: expected exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	switch alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}
