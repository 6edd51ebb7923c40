package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Paths         PathsConfig         `mapstructure:"paths"`
	Match         MatchConfig         `mapstructure:"match"`
	Columns       ColumnsConfig       `mapstructure:"columns"`
	Participation ParticipationConfig `mapstructure:"participation"`
	Filter        FilterConfig        `mapstructure:"filter"`
	Airtable      AirtableConfig      `mapstructure:"airtable"`
	Sheets        SheetsConfig        `mapstructure:"sheets"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// PathsConfig names the pipeline files. Relative paths resolve against Workdir.
type PathsConfig struct {
	Workdir       string   `mapstructure:"workdir"`
	Panels        []string `mapstructure:"panels"`
	PanelSkipRows int      `mapstructure:"panel_skip_rows"`
	Registry      string   `mapstructure:"registry"`
	Integrated    string   `mapstructure:"integrated"`
	Crosschecked  string   `mapstructure:"crosschecked"`
	Matched       string   `mapstructure:"matched"`
	Unmatched     string   `mapstructure:"unmatched"`
	Renamed       string   `mapstructure:"renamed"`
	Normalized    string   `mapstructure:"normalized"`
}

// MatchConfig tunes the identity matcher.
type MatchConfig struct {
	Threshold             float64  `mapstructure:"threshold"`
	EmailSimilarity       float64  `mapstructure:"email_similarity"`
	DedupeEmailSimilarity float64  `mapstructure:"dedupe_email_similarity"`
	MinScore              float64  `mapstructure:"min_score"`
	IDPrefix              string   `mapstructure:"id_prefix"`
	Blocking              bool     `mapstructure:"blocking"`
	SourceName            []string `mapstructure:"source_name"`
	SourcePhone           []string `mapstructure:"source_phone"`
	SourceEmail           []string `mapstructure:"source_email"`
	TargetName            []string `mapstructure:"target_name"`
	TargetPhone           []string `mapstructure:"target_phone"`
	TargetEmail           []string `mapstructure:"target_email"`
	TargetID              string   `mapstructure:"target_id"`
}

// ColumnsConfig points at an optional JSON or YAML mapping file. Column
// tables live outside the toml because their keys contain dots and case.
type ColumnsConfig struct {
	MappingFile string `mapstructure:"mapping_file"`
}

// ParticipationConfig drives the participation update.
type ParticipationConfig struct {
	Base              string   `mapstructure:"base"`
	Update            string   `mapstructure:"update"`
	UpdateSheet       string   `mapstructure:"update_sheet"`
	UpdateSkipRows    int      `mapstructure:"update_skip_rows"`
	Output            string   `mapstructure:"output"`
	BaseName          string   `mapstructure:"base_name"`
	UpdateNames       []string `mapstructure:"update_names"`
	BaseResult        string   `mapstructure:"base_result"`
	UpdateResult      string   `mapstructure:"update_result"`
	BaseDate          string   `mapstructure:"base_date"`
	BaseTime          string   `mapstructure:"base_time"`
	UpdateDate        string   `mapstructure:"update_date"`
	UpdateTime        string   `mapstructure:"update_time"`
	UpdateUID         string   `mapstructure:"update_uid"`
	Confirmation      string   `mapstructure:"confirmation"`
	GroupColumn       string   `mapstructure:"group_column"`
	Group             string   `mapstructure:"group"`
	Threshold         float64  `mapstructure:"threshold"`
	IncludeEmptyGroup bool     `mapstructure:"include_empty_group"`
}

// FilterConfig drops withdrawn panelists. The first present column of each
// list is checked; confirmation values compare case-insensitively.
type FilterConfig struct {
	Input                string   `mapstructure:"input"`
	Output               string   `mapstructure:"output"`
	ConfirmationColumns  []string `mapstructure:"confirmation_columns"`
	ExcludeConfirmation  []string `mapstructure:"exclude_confirmation"`
	ParticipationColumns []string `mapstructure:"participation_columns"`
	ExcludeParticipation []string `mapstructure:"exclude_participation"`
}

// AirtableConfig holds REST client settings.
type AirtableConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	BaseID     string        `mapstructure:"base_id"`
	Table      string        `mapstructure:"table"`
	APIKeyEnv  string        `mapstructure:"api_key_env"`
	APIKey     string        `mapstructure:"api_key"`
	BatchSize  int           `mapstructure:"batch_size"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UIDField   string        `mapstructure:"uid_field"`
	SyncFields []string      `mapstructure:"sync_fields"`
	Input      string        `mapstructure:"input"`
}

// SheetsConfig holds Google Sheets export settings. Tabs maps a sheet name
// to its gid.
type SheetsConfig struct {
	BaseURL       string            `mapstructure:"base_url"`
	SpreadsheetID string            `mapstructure:"spreadsheet_id"`
	Tabs          map[string]string `mapstructure:"tabs"`
	CacheTTL      time.Duration     `mapstructure:"cache_ttl"`
	MinInterval   time.Duration     `mapstructure:"min_interval"`
	MaxPerHour    int               `mapstructure:"max_per_hour"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	Output        string            `mapstructure:"output"`
}

// Path resolves p against the configured workdir.
func (c Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Paths.Workdir == "" {
		return p
	}
	return filepath.Join(c.Paths.Workdir, p)
}

// Load reads configuration from file and env. Env var overrides use prefix PANELMATCH_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("PANELMATCH_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "panelmatch"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("PANELMATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit path must exist; the default location is optional
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "panelmatch", "panelmatch.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("paths.workdir", ".")
	v.SetDefault("paths.panels", []string{
		"source/K-Beauty_Skin_Care_Panel_Data_1.csv",
		"source/K-Beauty_Skin_Care_Panel_Data_2.csv",
		"source/K-Beauty_Skin_Care_Panel_Data_3.csv",
	})
	v.SetDefault("paths.panel_skip_rows", 1)
	v.SetDefault("paths.registry", "source/famigo_member.csv")
	v.SetDefault("paths.integrated", "source/K-Beauty_Panel_Integrated.csv")
	v.SetDefault("paths.crosschecked", "source/K-Beauty_Panel_Integrated_with_Match.csv")
	v.SetDefault("paths.matched", "source/K-Beauty_Panel_Matched_Only.csv")
	v.SetDefault("paths.unmatched", "source/K-Beauty_Panel_Unmatched_Only.csv")
	v.SetDefault("paths.renamed", "source/K-Beauty_Panel_Airtable_Ready.csv")
	v.SetDefault("paths.normalized", "source/K-Beauty_Panel_Normalized.csv")

	v.SetDefault("match.threshold", 0.8)
	v.SetDefault("match.email_similarity", 0.9)
	v.SetDefault("match.dedupe_email_similarity", 0.85)
	v.SetDefault("match.min_score", 0.0)
	v.SetDefault("match.id_prefix", "FAM_")
	v.SetDefault("match.blocking", false)
	v.SetDefault("match.source_name", []string{"이름", "name"})
	v.SetDefault("match.source_phone", []string{"전화번호", "전화번호.1", "연락처", "phone"})
	v.SetDefault("match.source_email", []string{"이메일", "전화번호", "email"})
	v.SetDefault("match.target_name", []string{"Name", "name", "이름"})
	v.SetDefault("match.target_phone", []string{"Mobile", "Phone", "phone", "전화번호"})
	v.SetDefault("match.target_email", []string{"Email", "email", "이메일"})
	v.SetDefault("match.target_id", "")

	v.SetDefault("columns.mapping_file", "")

	v.SetDefault("participation.base", "source/K-Beauty_Panel_Normalized.csv")
	v.SetDefault("participation.update", "source/participation_update.csv")
	v.SetDefault("participation.update_sheet", "")
	v.SetDefault("participation.update_skip_rows", 1)
	v.SetDefault("participation.output", "source/participation_result.xlsx")
	v.SetDefault("participation.base_name", "name")
	v.SetDefault("participation.update_names", []string{"이름", "NAME"})
	v.SetDefault("participation.base_result", "participation_result")
	v.SetDefault("participation.update_result", "참여 여부 결과")
	v.SetDefault("participation.base_date", "reservation_date")
	v.SetDefault("participation.base_time", "reservation_time")
	v.SetDefault("participation.update_date", "예약 날짜")
	v.SetDefault("participation.update_time", "확정 예약시간")
	v.SetDefault("participation.update_uid", "UID")
	v.SetDefault("participation.confirmation", "confirmation_status")
	v.SetDefault("participation.group_column", "그룹구분")
	v.SetDefault("participation.group", "")
	v.SetDefault("participation.threshold", 0.8)
	v.SetDefault("participation.include_empty_group", false)

	v.SetDefault("filter.input", "source/K-Beauty_Panel_Normalized.csv")
	v.SetDefault("filter.output", "source/K-Beauty_Panel_Filtered.csv")
	v.SetDefault("filter.confirmation_columns", []string{"confirmation_status", "확정 여부", "확정여부"})
	v.SetDefault("filter.exclude_confirmation", []string{"취소", "중복", "탈락", "거부", "x"})
	v.SetDefault("filter.participation_columns", []string{"participation_result", "참여여부결과"})
	v.SetDefault("filter.exclude_participation", []string{"불가", "불참"})

	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.base_id", "")
	v.SetDefault("airtable.table", "ManagementPanel")
	v.SetDefault("airtable.api_key_env", "AIRTABLE_API_KEY")
	v.SetDefault("airtable.api_key", "")
	v.SetDefault("airtable.batch_size", 10)
	v.SetDefault("airtable.batch_delay", 200*time.Millisecond)
	v.SetDefault("airtable.timeout", 30*time.Second)
	v.SetDefault("airtable.uid_field", "uid")
	v.SetDefault("airtable.sync_fields", []string{
		"uid", "name", "email", "phone", "gender", "birth_year", "nationality",
		"reservation_location", "reservation_date", "reservation_time",
		"participation_result", "confirmation_status",
	})
	v.SetDefault("airtable.input", "source/K-Beauty_Panel_Normalized.csv")

	v.SetDefault("sheets.base_url", "https://docs.google.com")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.tabs", map[string]string{})
	v.SetDefault("sheets.cache_ttl", 15*time.Minute)
	v.SetDefault("sheets.min_interval", 60*time.Second)
	v.SetDefault("sheets.max_per_hour", 30)
	v.SetDefault("sheets.timeout", 30*time.Second)
	v.SetDefault("sheets.output", "cache/sheets_data.csv")
}

// Save writes the provided config to disk, creating the config directory if needed.
// The Airtable key is written in plain text; prefer the env var or `panelmatch key set`.
func Save(cfg Config) error {
	path := os.Getenv("PANELMATCH_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "panelmatch", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("paths.workdir", cfg.Paths.Workdir)
	v.Set("paths.panels", cfg.Paths.Panels)
	v.Set("paths.panel_skip_rows", cfg.Paths.PanelSkipRows)
	v.Set("paths.registry", cfg.Paths.Registry)
	v.Set("match.threshold", cfg.Match.Threshold)
	v.Set("match.email_similarity", cfg.Match.EmailSimilarity)
	v.Set("match.min_score", cfg.Match.MinScore)
	v.Set("match.id_prefix", cfg.Match.IDPrefix)
	v.Set("match.blocking", cfg.Match.Blocking)
	v.Set("columns.mapping_file", cfg.Columns.MappingFile)
	v.Set("filter.input", cfg.Filter.Input)
	v.Set("filter.output", cfg.Filter.Output)
	v.Set("airtable.base_id", cfg.Airtable.BaseID)
	v.Set("airtable.table", cfg.Airtable.Table)
	v.Set("airtable.api_key_env", cfg.Airtable.APIKeyEnv)
	v.Set("airtable.api_key", cfg.Airtable.APIKey)
	v.Set("sheets.spreadsheet_id", cfg.Sheets.SpreadsheetID)
	v.Set("sheets.tabs", cfg.Sheets.Tabs)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
