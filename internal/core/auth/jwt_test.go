package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "crm", TTL: time.Hour}
	tok, exp, err := j.Issue("u1", "a@b.co", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID())
	assert.Equal(t, "a@b.co", c.Email)
	assert.Equal(t, "admin", c.Role)
}

func TestParseRejectsOtherSecretAndIssuer(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "crm", TTL: time.Hour}
	tok, _, err := j.Issue("u1", "a@b.co", "")
	require.NoError(t, err)

	_, err = (&JWTer{Secret: []byte("other"), Issuer: "crm"}).Parse(tok)
	assert.Error(t, err)
	_, err = (&JWTer{Secret: []byte("k"), Issuer: "someone-else"}).Parse(tok)
	assert.Error(t, err)
}

func TestParseRejectsExpiredAndNoneAlg(t *testing.T) {
	j := &JWTer{Secret: []byte("k"), Issuer: "crm", TTL: -time.Hour}
	tok, _, err := j.Issue("u1", "a@b.co", "")
	require.NoError(t, err)
	_, err = j.Parse(tok)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "iss": "crm"})
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = j.Parse(s)
	assert.Error(t, err)
}
