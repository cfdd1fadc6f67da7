package api

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"prism-dashboard/domain"
)

const (
	// DefaultRoleClaim is read when no role claim is configured.
	DefaultRoleClaim    = "https://prism/roles"
	defaultJWKSCacheTTL = 15 * time.Minute
	clockSkew           = time.Minute
)

var errMissingSubject = errors.New("missing sub")

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   domain.Role
}

// AuthConfig configures token validation.
type AuthConfig struct {
	Audience string
	Issuer   string
	// RoleClaim names the claim holding the caller's role, as a string or a
	// list of strings.
	RoleClaim string
	// TestSecret switches validation to HS256 with a shared secret.
	TestSecret []byte
	// KeyCacheTTL bounds how long a resolved JWKS key is reused.
	KeyCacheTTL time.Duration
}

// Auth validates bearer tokens and extracts the caller.
type Auth struct {
	JWKS       *keyfunc.JWKS
	Audience   string
	Issuer     string
	RoleClaim  string
	TestMode   bool
	TestSecret []byte

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates an Auth. Without a test secret tokens must be RS256 and
// signed by a key from jwks.
func NewAuth(jwks *keyfunc.JWKS, cfg AuthConfig) *Auth {
	a := &Auth{
		JWKS:        jwks,
		Audience:    cfg.Audience,
		Issuer:      cfg.Issuer,
		RoleClaim:   cfg.RoleClaim,
		keyCacheTTL: cfg.KeyCacheTTL,
	}
	if a.RoleClaim == "" {
		a.RoleClaim = DefaultRoleClaim
	}
	if a.keyCacheTTL == 0 {
		a.keyCacheTTL = defaultJWKSCacheTTL
	}
	if len(cfg.TestSecret) > 0 {
		a.TestMode = true
		a.TestSecret = cfg.TestSecret
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	} else {
		a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation())
	}
	return a
}

// PrincipalFromAuthHeader authenticates an Authorization header value.
func (a *Auth) PrincipalFromAuthHeader(h string) (Principal, error) {
	token, err := bearerTokenFromString(h)
	if err != nil {
		return Principal{}, err
	}
	return a.PrincipalFromBearer(token)
}

// PrincipalFromBearer validates a raw bearer token.
func (a *Auth) PrincipalFromBearer(token []byte) (Principal, error) {
	if len(token) == 0 {
		return Principal{}, errBadAuthorization
	}

	tokenStr := readOnlyString(token)
	parsed, err := a.parser.Parse(tokenStr, a.keyFunc)
	if err != nil {
		return Principal{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, errors.New("invalid claims")
	}
	if err := a.verifyClaims(claims); err != nil {
		return Principal{}, err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Principal{}, errMissingSubject
	}
	return Principal{UserID: sub, Role: roleFromClaim(claims[a.RoleClaim])}, nil
}

func (a *Auth) verifyClaims(claims jwt.MapClaims) error {
	now := time.Now()
	// One minute of clock skew in both directions.
	if !claims.VerifyExpiresAt(now.Add(-clockSkew).Unix(), true) {
		return errors.New("token expired")
	}
	early := now.Add(clockSkew).Unix()
	if !claims.VerifyNotBefore(early, false) {
		return errors.New("token not valid yet")
	}
	if !claims.VerifyIssuedAt(early, false) {
		return errors.New("token used before issued")
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return errors.New("invalid issuer")
	}
	return nil
}

// roleFromClaim accepts "admin", ["user","admin"] or a space separated list.
// Anything unrecognised is a plain user.
func roleFromClaim(v any) domain.Role {
	switch val := v.(type) {
	case string:
		for _, r := range strings.Fields(val) {
			if domain.ParseRole(r) == domain.RoleAdmin {
				return domain.RoleAdmin
			}
		}
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && domain.ParseRole(s) == domain.RoleAdmin {
				return domain.RoleAdmin
			}
		}
	}
	return domain.RoleUser
}

func (a *Auth) keyFunc(token *jwt.Token) (any, error) {
	if a.TestMode {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.TestSecret, nil
	}
	return a.keyForToken(token)
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}
	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
