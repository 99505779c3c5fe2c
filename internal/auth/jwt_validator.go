package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenValidator pins the signing algorithm and checks an access token's
// issuer, audience and lifetime against a caller-supplied clock. The service
// issues tokens with a single audience, so Audience is a plain string rather
// than a list.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate checks the parsed token's claims. The algorithm is passed
// separately because it is read from the raw compact serialization (see
// tokenAlgorithm) before the claims are trusted.
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

	opts := make([]jwt.ValidateOption, 0, 4)
	opts = append(opts, jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })))
	if v.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, opts...)
}

// tokenAlgorithm reads the signing algorithm from the raw token's protected
// headers before any claim parsing, so an attacker-chosen "alg" header is
// rejected up front. Unsigned ("none") and mixed-algorithm tokens are
// refused outright.
func tokenAlgorithm(raw string) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.ParseString(raw)
	if err != nil {
		return "", err
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return "", errors.New("auth: token carries no signature")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range sigs {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		switch {
		case alg == "" || alg == jwa.NoSignature:
			return "", fmt.Errorf("auth: refusing token algorithm %q", alg)
		case algorithm == "":
			algorithm = alg
		case algorithm != alg:
			return "", errors.New("auth: token mixes signature algorithms")
		}
	}
	return algorithm, nil
}
