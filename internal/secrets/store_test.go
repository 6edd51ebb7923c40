package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorePutGetDelete(t *testing.T) {
	t.Parallel()
	s := NewStore(filepath.Join(t.TempDir(), "panelmatch"))

	_, err := s.Get("airtable")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(" Airtable ", "pat123"))
	got, err := s.Get("airtable")
	require.NoError(t, err)
	require.Equal(t, "pat123", got)

	data, err := os.ReadFile(filepath.Join(s.dir, fileName))
	require.NoError(t, err)
	require.NotContains(t, string(data), "pat123")

	require.NoError(t, s.Delete("airtable"))
	_, err = s.Get("airtable")
	require.ErrorIs(t, err, ErrNotFound)

	require.Error(t, s.Put("  ", "x"))
}

func TestResolveOrder(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Put("airtable", "from-store"))

	t.Setenv("PANELMATCH_TEST_KEY", "from-env")
	key, err := Resolve("PANELMATCH_TEST_KEY", s, "airtable", "from-config")
	require.NoError(t, err)
	require.Equal(t, "from-env", key)

	t.Setenv("PANELMATCH_TEST_KEY", "")
	key, err = Resolve("PANELMATCH_TEST_KEY", s, "airtable", "from-config")
	require.NoError(t, err)
	require.Equal(t, "from-store", key)

	key, err = Resolve("PANELMATCH_TEST_KEY", NewStore(t.TempDir()), "airtable", "from-config")
	require.NoError(t, err)
	require.Equal(t, "from-config", key)

	_, err = Resolve("", nil, "airtable", "")
	require.ErrorIs(t, err, ErrNotFound)
}
