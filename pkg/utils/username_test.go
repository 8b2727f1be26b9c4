package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUsername(t *testing.T) {
	cases := []struct {
		name    string
		orgName string
		want    string
	}{
		{"Budi Santoso", "SDN Merdeka 1", "budi_sdn"},
		{"Siti", "", "siti"},
		{"", "", "user"},
		{"Édouard Laporte", "SMA Négeri", "edouard_sma"},
		{"Dr. Andi, M.Pd", "SMP 5", "dr_smp"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GenerateUsername(tc.name, tc.orgName), "name=%q org=%q", tc.name, tc.orgName)
	}
}

func TestGenerateUsernameNeverStartsWithDigit(t *testing.T) {
	got := GenerateUsername("3a", "")
	assert.Equal(t, "user_3a", got)
}

func TestGenerateAvailableUsernameAppendsCounter(t *testing.T) {
	taken := map[string]bool{"budi_sdn": true, "budi_sdn1": true}
	exists := func(_ context.Context, u string) (bool, error) { return taken[u], nil }

	got, err := GenerateAvailableUsername(context.Background(), "Budi", "SDN", exists)
	require.NoError(t, err)
	assert.Equal(t, "budi_sdn2", got)
}

func TestGenerateAvailableUsernamePrefersBase(t *testing.T) {
	exists := func(_ context.Context, u string) (bool, error) { return false, nil }
	got, err := GenerateAvailableUsername(context.Background(), "Budi", "SDN", exists)
	require.NoError(t, err)
	assert.Equal(t, "budi_sdn", got)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	require.NoError(t, err)
	assert.True(t, CheckPassword("rahasia123", hash))
	assert.False(t, CheckPassword("salah", hash))
}
