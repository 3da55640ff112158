package tokens

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Codec issues and verifies one kind of session token. Access and refresh
// tokens use separate codecs with separate secrets.
type Codec struct {
	typ    Type
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(typ Type, secret []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if typ != TypeAccess && typ != TypeRefresh {
		return nil, fmt.Errorf("tokens: unknown token type %q", typ)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("tokens: empty %s secret", typ)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("tokens: non-positive %s ttl", typ)
	}
	c := &Codec{
		typ:    typ,
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Codec) TTL() time.Duration { return c.ttl }

func (c *Codec) Type() Type { return c.typ }

// Issue signs id into a token that expires after the codec's ttl.
func (c *Codec) Issue(id Identity) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.ttl)

	claims := Claims{
		UserID:       id.UserID,
		Email:        id.Email,
		RoleID:       id.RoleID,
		DepartmentID: id.DepartmentID,
		Type:         c.typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("tokens: sign %s token: %w", c.typ, err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Verify checks structure, then signature, then claims and expiry, and
// returns a *VerifyError describing the first failure.
func (c *Codec) Verify(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return nil, &VerifyError{Kind: KindMalformed}
	}

	sig, err := jwt.SigningMethodHS256.Sign(parts[0]+"."+parts[1], c.secret)
	if err != nil {
		return nil, &VerifyError{Kind: KindMalformed, Err: err}
	}
	want := base64.RawURLEncoding.EncodeToString(sig)
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return nil, &VerifyError{Kind: KindSignatureMismatch}
	}

	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	_, err = parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &VerifyError{Kind: KindExpired, Err: err}
		}
		return nil, &VerifyError{Kind: KindMalformed, Err: err}
	}

	if claims.Type != c.typ {
		return nil, &VerifyError{Kind: KindMalformed, Err: fmt.Errorf("want %s token, got %q", c.typ, claims.Type)}
	}
	if claims.UserID == 0 || claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return nil, &VerifyError{Kind: KindMalformed, Err: errors.New("subject does not match id")}
	}
	return &claims, nil
}
