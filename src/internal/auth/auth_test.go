package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMintAndParse(t *testing.T) {
	tokens := NewTokens("test-secret")

	tok, err := tokens.Mint("m1", RoleManager, time.Minute)
	assert.NoError(t, err)

	claims, err := tokens.Parse(tok)
	assert.NoError(t, err)
	assert.Equal(t, "m1", claims.MemberID)
	assert.Equal(t, RoleManager, claims.Role)
}

func TestParse_WrongSecret(t *testing.T) {
	tok, err := NewTokens("secret-a").Mint("m1", RoleMember, time.Minute)
	assert.NoError(t, err)

	_, err = NewTokens("secret-b").Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	tokens := NewTokens("test-secret")
	tok, err := tokens.Mint("m1", RoleMember, -time.Minute)
	assert.NoError(t, err)

	_, err = tokens.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	_, err := NewTokens("test-secret").Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMint_UnknownRole(t *testing.T) {
	_, err := NewTokens("test-secret").Mint("m1", Role("owner"), time.Minute)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleManager))
	assert.True(t, RoleManager.AtLeast(RoleManager))
	assert.True(t, RoleManager.AtLeast(RoleMember))
	assert.False(t, RoleMember.AtLeast(RoleManager))
	assert.False(t, Role("nobody").AtLeast(RoleMember))
}
