package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jowpereira/bradax/pkg/identity"
	"github.com/jowpereira/bradax/pkg/reasoncode"
)

// Claims is the JWT payload issued by the Auth Service: project scope,
// granted scopes, and the standard registered claims (exp, iat).
type Claims struct {
	jwt.RegisteredClaims
	ProjectID string   `json:"project_id"`
	Scopes    []string `json:"scopes"`
}

// Principal is the verified identity an authenticated request carries
// downstream: the project it is scoped to, its granted scopes, and the
// token's expiry.
type Principal struct {
	ProjectID string
	Scopes    []string
	ExpiresAt time.Time
}

// IssueToken signs a token scoped to projectID, expiring after ttl.
func IssueToken(ctx context.Context, ks identity.KeySet, projectID string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ProjectID: projectID,
		Scopes:    scopes,
	}
	return ks.Sign(ctx, projectID, claims)
}

// VerifyToken parses and validates tokenStr: the kid must be well-shaped
// and of a known version, the payload's project_id must match the kid's
// project, compared case-insensitively because the kid carries the
// lowercased id (never trusted from the payload alone), the signature
// must verify under the re-derived secret, and the token must not be
// expired.
func VerifyToken(ks identity.KeySet, tokenStr string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, ks.KeyFunc())
	if err != nil {
		if strings.Contains(err.Error(), "token is expired") {
			return nil, reasoncode.ExpiredToken()
		}
		return nil, reasoncode.InvalidToken(err)
	}
	if !token.Valid {
		return nil, reasoncode.InvalidToken(nil)
	}

	kid, _ := token.Header["kid"].(string)
	kidProject, _, err := identity.ParseKID(kid)
	if err != nil {
		return nil, reasoncode.InvalidToken(err)
	}
	if !strings.EqualFold(kidProject, claims.ProjectID) {
		return nil, reasoncode.KeyMismatch()
	}

	expiresAt := time.Time{}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &Principal{
		ProjectID: claims.ProjectID,
		Scopes:    claims.Scopes,
		ExpiresAt: expiresAt,
	}, nil
}
