package auth

import (
	"testing"
	"time"

	"github.com/plurahq/agencyhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	p := models.Principal{
		ID:        "user_123",
		Email:     "jane@x.com",
		FirstName: "Jane",
		LastName:  "Doe",
		ImageURL:  "https://img.example/jane.png",
	}

	token, err := GenerateToken(p, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "secret")
	require.NoError(t, err)

	got := claims.Principal()
	assert.Equal(t, p, got)
	assert.Equal(t, "agencyhub", claims.Issuer)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(models.Principal{ID: "user_123"}, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateToken(models.Principal{ID: "user_123"}, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret")
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", "secret")
	assert.Error(t, err)
}
