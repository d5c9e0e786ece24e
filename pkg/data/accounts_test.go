package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAccounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	content := AccountsTemplate + `
1. alice@example.com secret1

2.  bob@example.com   secret2
not an account line
# 3. commented@example.com nope
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	accounts, err := ReadAccounts(path)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, Account{ID: 1, Email: "alice@example.com", Password: "secret1"}, accounts[0])
	assert.Equal(t, Account{ID: 2, Email: "bob@example.com", Password: "secret2"}, accounts[1])

	found, ok := FindAccount(accounts, 2)
	assert.True(t, ok)
	assert.Equal(t, "bob@example.com", found.Email)

	_, ok = FindAccount(accounts, 9)
	assert.False(t, ok)
}

func TestReadAccountsMissingFile(t *testing.T) {
	_, err := ReadAccounts(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
