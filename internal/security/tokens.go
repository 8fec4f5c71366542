package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"authgate/backend/internal/autherr"
)

// TokenTypeRefresh is the "type" claim carried by refresh tokens.
const TokenTypeRefresh = "refresh"

const (
	claimUserID    = "user_id"
	claimEmail     = "email"
	claimFirstName = "first_name"
	claimLastName  = "last_name"
	claimType      = "type"
	claimIssuer    = "iss"
	claimAudience  = "aud"
	claimJTI       = "jti"
)

// AccessSubject is the user data embedded in an access token.
type AccessSubject struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// AccessClaims holds the validated claims of an access token.
type AccessClaims struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Issuer    string
	Audience  []string
	// JTI is empty for tokens minted without one; those cannot be revoked individually.
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims holds the validated claims of a refresh token.
type RefreshClaims struct {
	UserID    string
	Type      string
	JTI       string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenProvider issues and validates access and refresh tokens on top of a Codec.
type TokenProvider struct {
	codec      *Codec
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	mintJTI    bool
}

// NewTokenProvider returns a TokenProvider. issuer and audience are written to every token
// and required on parse. When mintJTI is true access tokens carry a random jti.
func NewTokenProvider(codec *Codec, issuer, audience string, accessTTL, refreshTTL time.Duration, mintJTI bool) *TokenProvider {
	return &TokenProvider{
		codec:      codec,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		mintJTI:    mintJTI,
	}
}

// AccessTTL is the lifetime of issued access tokens.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL is the lifetime of issued refresh tokens.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// Now returns the provider's clock reading.
func (p *TokenProvider) Now() time.Time { return p.codec.Now() }

// IssueAccess issues an access token for sub. Returns the token, its jti (empty when
// jti minting is off), and its expiration time.
func (p *TokenProvider) IssueAccess(sub AccessSubject) (token string, jti string, expiresAt time.Time, err error) {
	if sub.UserID == "" {
		return "", "", time.Time{}, errors.New("security: access token needs a user id")
	}
	claims := map[string]any{
		claimUserID:    sub.UserID,
		claimEmail:     sub.Email,
		claimFirstName: sub.FirstName,
		claimLastName:  sub.LastName,
		claimIssuer:    p.issuer,
		claimAudience:  p.audience,
	}
	if p.mintJTI {
		jti, err = generateJTI()
		if err != nil {
			return "", "", time.Time{}, err
		}
		claims[claimJTI] = jti
	}
	token, expiresAt, err = p.codec.Encode(claims, p.accessTTL)
	return token, jti, expiresAt, err
}

// IssueRefresh issues a refresh token for userID. Refresh tokens carry no profile data.
// They always carry a random jti so two logins in the same second get distinct ledger rows.
func (p *TokenProvider) IssueRefresh(userID string) (token string, expiresAt time.Time, err error) {
	if userID == "" {
		return "", time.Time{}, errors.New("security: refresh token needs a user id")
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	return p.codec.Encode(map[string]any{
		claimUserID:   userID,
		claimType:     TokenTypeRefresh,
		claimIssuer:   p.issuer,
		claimAudience: p.audience,
		claimJTI:      jti,
	}, p.refreshTTL)
}

// ParseAccess decodes an access token and checks iss and aud. A refresh token is
// rejected with autherr.ErrWrongTokenType.
func (p *TokenProvider) ParseAccess(token string) (*AccessClaims, error) {
	c, err := p.decode(token)
	if err != nil {
		return nil, err
	}
	if c.String(claimType) == TokenTypeRefresh {
		return nil, autherr.ErrWrongTokenType
	}
	iat, _ := c.Time("iat")
	exp, _ := c.Time("exp")
	return &AccessClaims{
		UserID:    c.String(claimUserID),
		Email:     c.String(claimEmail),
		FirstName: c.String(claimFirstName),
		LastName:  c.String(claimLastName),
		Issuer:    c.String(claimIssuer),
		Audience:  c.Audience(),
		JTI:       c.String(claimJTI),
		IssuedAt:  iat,
		ExpiresAt: exp,
	}, nil
}

// ParseRefresh decodes a refresh token and checks iss, aud and the type claim.
func (p *TokenProvider) ParseRefresh(token string) (*RefreshClaims, error) {
	c, err := p.decode(token)
	if err != nil {
		return nil, err
	}
	typ := c.String(claimType)
	if typ != TokenTypeRefresh {
		return nil, autherr.ErrWrongTokenType
	}
	iat, _ := c.Time("iat")
	exp, _ := c.Time("exp")
	return &RefreshClaims{
		UserID:    c.String(claimUserID),
		Type:      typ,
		JTI:       c.String(claimJTI),
		Issuer:    c.String(claimIssuer),
		Audience:  c.Audience(),
		IssuedAt:  iat,
		ExpiresAt: exp,
	}, nil
}

func (p *TokenProvider) decode(token string) (Claims, error) {
	c, err := p.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	if c.String(claimIssuer) != p.issuer {
		return nil, autherr.ErrInvalidClaims
	}
	audOk := false
	for _, a := range c.Audience() {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, autherr.ErrInvalidClaims
	}
	if c.String(claimUserID) == "" {
		return nil, autherr.ErrInvalidClaims
	}
	return c, nil
}

// NewSessionID returns an opaque device session identifier (16 random bytes, hex).
func NewSessionID() (string, error) {
	return generateJTI()
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
