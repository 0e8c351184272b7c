package models

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialComplete(t *testing.T) {
	assert.False(t, (*Credential)(nil).Complete())
	assert.False(t, (&Credential{AccessToken: "a"}).Complete())
	assert.False(t, (&Credential{RefreshToken: "r"}).Complete())
	assert.True(t, (&Credential{AccessToken: "a", RefreshToken: "r"}).Complete())
}

func TestParseAccessClaims(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &AccessClaims{UserID: 42, Role: RoleMember})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	claims := ParseAccessClaims(signed)
	require.NotNil(t, claims)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, RoleMember, claims.Role)
}

func TestParseAccessClaimsOpaqueToken(t *testing.T) {
	assert.Nil(t, ParseAccessClaims("not-a-jwt"))
	assert.Nil(t, ParseAccessClaims(""))
}

func TestEnrollmentStatusLive(t *testing.T) {
	assert.True(t, EnrollmentStatusPending.Live())
	assert.True(t, EnrollmentStatusApproved.Live())
	assert.False(t, EnrollmentStatusCancelled.Live())
}

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, MethodWalletA.Valid())
	assert.True(t, MethodGatewayB.Valid())
	assert.True(t, MethodCardC.Valid())
	assert.False(t, PaymentMethod("cash").Valid())
}

func TestSpotsLeftNeverNegative(t *testing.T) {
	c := &ClassOffering{Capacity: 10, Occupancy: 12}
	assert.Zero(t, c.SpotsLeft())

	c = &ClassOffering{Capacity: 10, Occupancy: 3}
	assert.Equal(t, 7, c.SpotsLeft())
}
