package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "heladeria", ExpirationMinutes: 30}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := jwtConfig()
	now := time.Now().UTC().Truncate(time.Second)
	userID, customerID := uuid.New(), uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID:     userID,
		CustomerID: &customerID,
		Role:       enums.UserRoleCustomer,
		JTI:        "access-1",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, userID.String(), claims.Subject)
	require.NotNil(t, claims.CustomerID)
	require.Equal(t, customerID, *claims.CustomerID)
	require.Equal(t, enums.UserRoleCustomer, claims.Role)
	require.Equal(t, "access-1", claims.ID)
	require.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintFillsMissingJTI(t *testing.T) {
	token, err := MintAccessToken(jwtConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.NoError(t, err)
	claims, err := ParseAccessToken(jwtConfig(), token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)
	require.Nil(t, claims.CustomerID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := MintAccessToken(jwtConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleMarketing})
	require.NoError(t, err)

	other := jwtConfig()
	other.Secret = "different"
	_, err = ParseAccessToken(other, token)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestExpiredTokenOnlyParsesLeniently(t *testing.T) {
	cfg := jwtConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin, JTI: "old"})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	require.NoError(t, err)
	require.Equal(t, "old", claims.ID)
}

func TestIssuerIsAlwaysChecked(t *testing.T) {
	foreign := jwtConfig()
	foreign.Issuer = "otra-tienda"
	token, err := MintAccessToken(foreign, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	require.NoError(t, err)

	_, err = ParseAccessToken(jwtConfig(), token)
	require.Error(t, err)
	_, err = ParseAccessTokenAllowExpired(jwtConfig(), token)
	require.Error(t, err)
}

func TestMintValidatesInput(t *testing.T) {
	_, err := MintAccessToken(jwtConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New()})
	require.Error(t, err, "role required")

	_, err = MintAccessToken(jwtConfig(), time.Now(), AccessTokenPayload{Role: enums.UserRoleAdmin})
	require.Error(t, err, "user id required")

	noSecret := jwtConfig()
	noSecret.Secret = ""
	_, err = MintAccessToken(noSecret, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.Error(t, err)
}
