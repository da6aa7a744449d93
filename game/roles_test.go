package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignRoles_DistinctWhenPoolIsLargeEnough(t *testing.T) {
	ids := []int64{10, 20, 30}
	pool := []string{"Napoleon", "Batman", "Cleopatra", "Einstein", "Shrek"}

	roles, err := AssignRoles(ids, pool, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, roles, 3)

	seen := map[string]bool{}
	for _, id := range ids {
		role, ok := roles[id]
		require.True(t, ok, "participant %d has no role", id)
		assert.Contains(t, pool, role)
		assert.False(t, seen[role], "role %s dealt twice", role)
		seen[role] = true
	}
}

func TestAssignRoles_RepeatsWhenPoolIsShort(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5}
	pool := []string{"Batman", "Shrek"}

	roles, err := AssignRoles(ids, pool, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, roles, 5)
	for _, id := range ids {
		assert.Contains(t, pool, roles[id])
	}
}

func TestAssignRoles_EmptyPool(t *testing.T) {
	_, err := AssignRoles([]int64{1, 2}, nil, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrEmptyRolePool)

	var gameErr *Error
	require.ErrorAs(t, err, &gameErr)
	assert.Equal(t, KindConfigurationError, gameErr.Kind)
}

func TestAssignRoles_SameSeedSameDeal(t *testing.T) {
	ids := []int64{1, 2, 3, 4}
	pool := []string{"a", "b", "c", "d", "e", "f"}

	first, err := AssignRoles(ids, pool, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	second, err := AssignRoles(ids, pool, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssignRoles_DoesNotTouchPool(t *testing.T) {
	pool := []string{"a", "b", "c"}
	_, err := AssignRoles([]int64{1, 2, 3}, pool, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, pool)
}
