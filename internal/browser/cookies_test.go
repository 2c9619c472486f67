package browser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindner/flowsync/internal/models"
)

const testSessionCookie = "__Secure-next-auth.session-token"

func testCookies() []models.Cookie {
	return []models.Cookie{
		{Name: "other", Value: "x", Domain: ".labs.google"},
		{Name: testSessionCookie, Value: "session-value-123456", Domain: ".labs.google", Secure: true},
	}
}

func TestCookieStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewCookieStore(t.TempDir(), testSessionCookie)

	require.False(t, store.Has(7))

	require.NoError(t, store.Save(7, testCookies()))
	require.True(t, store.Has(7))

	loaded, err := store.Load(7)
	require.NoError(t, err)
	assert.Equal(t, testCookies(), loaded)
}

func TestCookieStore_LoadMissing(t *testing.T) {
	store := NewCookieStore(t.TempDir(), testSessionCookie)
	_, err := store.Load(1)
	assert.Error(t, err)
}

func TestCookieStore_FindSession(t *testing.T) {
	store := NewCookieStore(t.TempDir(), testSessionCookie)

	session := store.FindSession(testCookies())
	require.NotNil(t, session)
	assert.Equal(t, "session-value-123456", session.Value)

	assert.Nil(t, store.FindSession([]models.Cookie{{Name: "other", Value: "x"}}))
	assert.Nil(t, store.FindSession(nil))
}

func TestCookieStore_DeleteProfileData(t *testing.T) {
	dir := t.TempDir()
	store := NewCookieStore(dir, testSessionCookie)

	require.NoError(t, store.Save(3, testCookies()))
	require.True(t, store.Has(3))

	require.NoError(t, store.DeleteProfileData(3))
	assert.False(t, store.Has(3))
	assert.NoDirExists(t, filepath.Join(dir, "profile_3"))

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteProfileData(3))
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "long token", token: "abcdefghijklmnop", want: "abcd...mnop"},
		{name: "short token unchanged", token: "abcd", want: "abcd"},
		{name: "boundary length unchanged", token: "abcdefgh", want: "abcdefgh"},
		{name: "empty", token: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskToken(tt.token))
		})
	}
}
