package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/advisor-tasks/internal/credential"
)

func TestStore_TokenRoundTrip(t *testing.T) {
	s := credential.NewStore(keyring.NewArrayKeyring(nil))

	_, err := s.Token("acme")
	require.ErrorIs(t, err, credential.ErrNoToken)

	require.NoError(t, s.SetToken("acme", "tok-1"))
	require.NoError(t, s.SetToken("globex", "tok-2"))

	got, err := s.Token("acme")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got)

	require.NoError(t, s.DeleteToken("acme"))
	_, err = s.Token("acme")
	require.ErrorIs(t, err, credential.ErrNoToken)

	got, err = s.Token("globex")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got)
}

func TestStore_SetTokenRejectsEmpty(t *testing.T) {
	s := credential.NewStore(keyring.NewArrayKeyring(nil))

	assert.Error(t, s.SetToken("", "tok"))
	assert.Error(t, s.SetToken("acme", ""))
}

func TestStore_ResolveToken(t *testing.T) {
	ring := keyring.NewArrayKeyring([]keyring.Item{
		{Key: credential.TokenKey("acme"), Data: []byte("stored")},
	})
	s := credential.NewStore(ring)

	tests := []struct {
		name     string
		tenant   string
		explicit string
		want     string
	}{
		{"explicit wins", "acme", "flag", "flag"},
		{"keyring fallback", "acme", "", "stored"},
		{"nothing stored", "globex", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ResolveToken(tt.tenant, tt.explicit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "api-token:acme", credential.TokenKey("acme"))
}
