package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func testValidator() *Validator {
	return NewStaticValidator("https://auth.example.com", func(*jwt.Token) (interface{}, error) {
		return testSecret, nil
	}, "HS256")
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func TestValidatorUserID(t *testing.T) {
	v := testValidator()
	token := sign(t, jwt.MapClaims{
		"iss": "https://auth.example.com",
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", id)
}

func TestValidatorRejects(t *testing.T) {
	v := testValidator()
	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"wrong issuer", jwt.MapClaims{"iss": "https://evil.example.com", "sub": "u"}},
		{"expired", jwt.MapClaims{"iss": "https://auth.example.com", "sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}},
		{"no subject", jwt.MapClaims{"iss": "https://auth.example.com"}},
	}

	for _, test := range tests {
		_, err := v.UserID(sign(t, test.claims))
		assert.Error(t, err, test.name)
	}

	_, err := v.UserID("not-a-jwt")
	assert.Error(t, err)
}

func TestNilValidator(t *testing.T) {
	var v *Validator
	_, err := v.UserID("anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}

func TestUserIDFromClaims(t *testing.T) {
	assert.Equal(t, "s", UserIDFromClaims(jwt.MapClaims{"sub": "s", "id": "i"}))
	assert.Equal(t, "i", UserIDFromClaims(jwt.MapClaims{"id": "i"}))
	assert.Equal(t, "", UserIDFromClaims(jwt.MapClaims{}))
}
