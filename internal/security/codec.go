package security

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authgate/backend/internal/autherr"
)

// ErrInvalidTTL is returned by Encode when the lifetime is shorter than one second.
var ErrInvalidTTL = errors.New("security: token ttl must be at least one second")

// Claims is a decoded claim set. Numbers decode as float64, as encoding/json does.
type Claims map[string]any

// String returns the claim as a string. Numeric claims are formatted without exponent.
func (c Claims) String(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Time returns a NumericDate claim (seconds since epoch) as UTC time.
func (c Claims) Time(key string) (time.Time, bool) {
	var sec int64
	switch v := c[key].(type) {
	case float64:
		sec = int64(v)
	case int64:
		sec = v
	case int:
		sec = int64(v)
	default:
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}

// Audience returns the aud claim whether it was written as a string or an array.
func (c Claims) Audience() []string {
	aud, err := jwt.MapClaims(c).GetAudience()
	if err != nil {
		return nil
	}
	return aud
}

// Codec encodes and decodes HS256 JWTs with a single shared secret.
// It knows nothing about the claim schema beyond iat and exp.
type Codec struct {
	secret []byte
	now    func() time.Time
	leeway time.Duration
	parser *jwt.Parser
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLeeway tolerates clock skew when checking exp.
func WithLeeway(d time.Duration) CodecOption {
	return func(c *Codec) {
		if d > 0 {
			c.leeway = d
		}
	}
}

// NewCodec returns a Codec signing with secret. The secret is copied.
func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(c.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	return c, nil
}

// Now returns the codec's current time in UTC.
func (c *Codec) Now() time.Time {
	return c.now().UTC()
}

// Encode signs claims with iat=now and exp=now+ttl (whole seconds) and returns the
// compact token and its expiry. The caller's map is not modified; iat and exp in it are overwritten.
func (c *Codec) Encode(claims map[string]any, ttl time.Duration) (string, time.Time, error) {
	if ttl < time.Second {
		return "", time.Time{}, ErrInvalidTTL
	}
	iat := c.Now().Unix()
	exp := iat + int64(ttl/time.Second)
	mc := make(jwt.MapClaims, len(claims)+2)
	for k, v := range claims {
		mc[k] = v
	}
	mc["iat"] = iat
	mc["exp"] = exp
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, time.Unix(exp, 0).UTC(), nil
}

// segmentEncoding is the unpadded base64url alphabet with canonical trailing bits.
var segmentEncoding = base64.RawURLEncoding.Strict()

// Decode verifies the signature before trusting any claim, then checks exp.
// Errors are autherr.ErrMalformedToken, autherr.ErrInvalidSignature or autherr.ErrTokenExpired.
// The signature segment is compared as text, so any change to it is an invalid signature.
func (c *Codec) Decode(token string) (Claims, error) {
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		return nil, autherr.ErrMalformedToken
	}
	for _, seg := range parts[:2] {
		if seg == "" {
			return nil, autherr.ErrMalformedToken
		}
		if _, err := segmentEncoding.DecodeString(seg); err != nil {
			return nil, autherr.Wrap(autherr.ErrMalformedToken, err)
		}
	}
	if !c.signatureMatches(parts[0]+"."+parts[1], parts[2]) {
		return nil, autherr.ErrInvalidSignature
	}
	mc := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(token, mc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	return Claims(mc), nil
}

// signatureMatches reports whether sig is the HS256 signature segment of signingInput,
// compared in constant time.
func (c *Codec) signatureMatches(signingInput, sig string) bool {
	raw, err := jwt.SigningMethodHS256.Sign(signingInput, c.secret)
	if err != nil {
		return false
	}
	want := base64.RawURLEncoding.EncodeToString(raw)
	return subtle.ConstantTimeCompare([]byte(want), []byte(sig)) == 1
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return autherr.Wrap(autherr.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return autherr.Wrap(autherr.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return autherr.Wrap(autherr.ErrInvalidClaims, err)
	default:
		return autherr.Wrap(autherr.ErrMalformedToken, err)
	}
}
