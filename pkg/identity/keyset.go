// Package identity derives per-project signing secrets from a single
// master secret, so the broker never stores a secret per project.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// kidVersion is the only derivation version this core implements.
	// The version segment is reserved for a future rotation scheme.
	kidVersion = "v1"

	derivationPrefix = "bradax-jwt-v1::"
)

// ErrUnknownKeyVersion is returned when a token's kid names a derivation
// version this core does not implement.
var ErrUnknownKeyVersion = fmt.Errorf("identity: unknown key version")

// KeySet derives a per-project signing secret on demand and never
// persists it. It replaces a stored-key keyset: there is nothing to
// rotate except the version segment of the kid.
type KeySet interface {
	// Sign creates a signed token for projectID with the current key
	// version.
	Sign(ctx context.Context, projectID string, claims jwt.Claims) (string, error)
	// KeyFunc returns the jwt.Keyfunc that re-derives the project secret
	// from the token's kid header at verification time.
	KeyFunc() jwt.Keyfunc
}

// DerivedKeySet implements KeySet using HMAC-SHA256 derivation from a
// single master secret. No per-project key is ever stored in memory or
// on disk; each derivation is a pure function of (master secret,
// project id).
type DerivedKeySet struct {
	masterSecret []byte
}

// NewDerivedKeySet builds a KeySet from the process-wide master secret.
func NewDerivedKeySet(masterSecret string) (*DerivedKeySet, error) {
	if len(masterSecret) == 0 {
		return nil, fmt.Errorf("identity: master secret must not be empty")
	}
	return &DerivedKeySet{masterSecret: []byte(masterSecret)}, nil
}

// KID returns the key-id for projectID at the current derivation version,
// shape p:<project_id>:v1.
func KID(projectID string) string {
	return fmt.Sprintf("p:%s:%s", strings.ToLower(projectID), kidVersion)
}

// ParseKID extracts the project id and version from a kid of shape
// p:<project_id>:v<n>. It returns an error if the shape does not match
// or the version is not one this core implements.
func ParseKID(kid string) (projectID, version string, err error) {
	parts := strings.Split(kid, ":")
	if len(parts) != 3 || parts[0] != "p" || parts[1] == "" {
		return "", "", fmt.Errorf("identity: malformed kid %q", kid)
	}
	if parts[2] != kidVersion {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKeyVersion, parts[2])
	}
	return parts[1], parts[2], nil
}

// Derive computes HMAC-SHA256(master_secret, "bradax-jwt-v1::" + lower(project_id)).
// The result is never cached to disk; callers may memoize it in-process.
func (ks *DerivedKeySet) Derive(projectID string) []byte {
	mac := hmac.New(sha256.New, ks.masterSecret)
	mac.Write([]byte(derivationPrefix + strings.ToLower(projectID)))
	return mac.Sum(nil)
}

// Sign signs claims with the secret derived for projectID and sets the
// kid header accordingly.
func (ks *DerivedKeySet) Sign(_ context.Context, projectID string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = KID(projectID)
	return token.SignedString(ks.Derive(projectID))
}

// KeyFunc returns a jwt.Keyfunc that requires HS256, requires a
// well-shaped kid, and re-derives the signing secret from it. It never
// trusts a project_id carried in the payload over the one named in the
// kid; callers must additionally cross-check claim vs. kid project after
// parsing (see pkg/auth.VerifyToken).
func (ks *DerivedKeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("identity: unexpected signing method %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("identity: missing kid in header")
		}
		projectID, _, err := ParseKID(kid)
		if err != nil {
			return nil, err
		}
		return ks.Derive(projectID), nil
	}
}
