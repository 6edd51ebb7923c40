package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PANELMATCH_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "share", "panelmatch", "panelmatch.db"), cfg.Database.Path)
	require.Equal(t, 0.8, cfg.Match.Threshold)
	require.Equal(t, 0.9, cfg.Match.EmailSimilarity)
	require.Equal(t, "FAM_", cfg.Match.IDPrefix)
	require.Len(t, cfg.Paths.Panels, 3)
	require.Equal(t, 1, cfg.Paths.PanelSkipRows)
	require.Equal(t, 10, cfg.Airtable.BatchSize)
	require.Equal(t, 200*time.Millisecond, cfg.Airtable.BatchDelay)
	require.Equal(t, "AIRTABLE_API_KEY", cfg.Airtable.APIKeyEnv)
	require.Equal(t, 15*time.Minute, cfg.Sheets.CacheTTL)
	require.Equal(t, 30, cfg.Sheets.MaxPerHour)
	require.Equal(t, "source/K-Beauty_Panel_Normalized.csv", cfg.Filter.Input)
	require.Contains(t, cfg.Filter.ExcludeConfirmation, "탈락")
	require.Equal(t, []string{"불가", "불참"}, cfg.Filter.ExcludeParticipation)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[paths]
workdir = "/data/panel"
registry = "members.csv"

[match]
threshold = 0.85
blocking = true

[sheets]
spreadsheet_id = "abc"
cache_ttl = "5m"

[sheets.tabs]
seoul = "0"
suwon = "123"
`), 0o644))
	t.Setenv("PANELMATCH_CONFIG", path)
	t.Setenv("PANELMATCH_MATCH_MIN_SCORE", "40")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 0.85, cfg.Match.Threshold)
	require.True(t, cfg.Match.Blocking)
	require.Equal(t, 40.0, cfg.Match.MinScore)
	require.Equal(t, 5*time.Minute, cfg.Sheets.CacheTTL)
	require.Equal(t, map[string]string{"seoul": "0", "suwon": "123"}, cfg.Sheets.Tabs)
	require.Equal(t, "/data/panel/members.csv", cfg.Path(cfg.Paths.Registry))
	require.Equal(t, "/abs.csv", cfg.Path("/abs.csv"))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("PANELMATCH_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	_, err := Load()
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("PANELMATCH_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Airtable.BaseID = "appXYZ"
	cfg.Match.Threshold = 0.75

	t.Setenv("PANELMATCH_CONFIG", path)
	require.NoError(t, Save(cfg))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, "appXYZ", got.Airtable.BaseID)
	require.Equal(t, 0.75, got.Match.Threshold)
}

func TestLoadMapping(t *testing.T) {
	t.Parallel()

	m, err := LoadMapping("")
	require.NoError(t, err)
	require.Equal(t, "phone", m.Rename["전화번호.1"])
	require.Equal(t, "UID", m.Priority[0])

	dir := t.TempDir()
	yml := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(yml, []byte(`
rename:
  "Full Name": name
  "Mobile.1": phone
priority: [name, phone]
`), 0o644))
	m, err = LoadMapping(yml)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"Full Name": "name", "Mobile.1": "phone"}, m.Rename)
	require.Equal(t, []string{"name", "phone"}, m.Priority)
	require.NotEmpty(t, m.Aliases, "tables absent from the file keep defaults")

	js := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"sheets": {"성함": "name"}}`), 0o644))
	m, err = LoadMapping(js)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"성함": "name"}, m.Sheets)

	_, err = LoadMapping(filepath.Join(dir, "mapping.txt"))
	require.Error(t, err)
}
