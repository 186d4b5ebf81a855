package vfs

import (
	"fmt"
	"strings"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
)

// Audit backends.
const (
	AuditBackendStore  = "store"
	AuditBackendSQLite = "sqlite"
)

// Clock returns the current time.
type Clock func() time.Time

// DefaultClock returns UTC wall time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// Settings captures runtime configuration for the virtual file system.
type Settings struct {
	DBPath             string
	InMemory           bool
	KeyDir             string
	TokenTTL           time.Duration
	TokenIssuer        string
	MaxActivationCodes int
	MaxPasswordLength  int
	MaxDataFileBytes   int64
	Audit              AuditSettings
}

// AuditSettings selects where account logs are written.
type AuditSettings struct {
	Backend    string
	SQLitePath string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		DBPath:             "/var/lib/laisky-vfs/db",
		KeyDir:             "/var/lib/laisky-vfs/keys",
		TokenTTL:           30 * time.Minute,
		TokenIssuer:        "laisky-vfs",
		MaxActivationCodes: 100,
		MaxPasswordLength:  1024,
		MaxDataFileBytes:   10_000_000,
		Audit: AuditSettings{
			Backend:    AuditBackendStore,
			SQLitePath: "/var/lib/laisky-vfs/audit.db",
		},
	}
}

// LoadSettingsFromConfig reads configuration and applies safe defaults.
func LoadSettingsFromConfig() Settings {
	def := DefaultSettings()
	settings := Settings{
		DBPath:             stringFromConfig("settings.vfs.db_path", def.DBPath),
		InMemory:           boolFromConfig("settings.vfs.in_memory", false),
		KeyDir:             stringFromConfig("settings.vfs.key_dir", def.KeyDir),
		TokenTTL:           time.Duration(intFromConfig("settings.vfs.token_ttl_minutes", 30)) * time.Minute,
		TokenIssuer:        stringFromConfig("settings.vfs.token_issuer", def.TokenIssuer),
		MaxActivationCodes: intFromConfig("settings.vfs.max_activation_codes", def.MaxActivationCodes),
		MaxPasswordLength:  intFromConfig("settings.vfs.max_password_length", def.MaxPasswordLength),
		MaxDataFileBytes:   int64FromConfig("settings.vfs.max_data_file_bytes", def.MaxDataFileBytes),
		Audit: AuditSettings{
			Backend:    strings.ToLower(stringFromConfig("settings.vfs.audit.backend", def.Audit.Backend)),
			SQLitePath: stringFromConfig("settings.vfs.audit.sqlite_path", def.Audit.SQLitePath),
		},
	}

	return settings.Normalize()
}

// Normalize replaces unset or invalid limits with defaults.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.TokenTTL <= 0 {
		s.TokenTTL = def.TokenTTL
	}
	if s.MaxActivationCodes <= 0 {
		s.MaxActivationCodes = def.MaxActivationCodes
	}
	if s.MaxPasswordLength <= 0 {
		s.MaxPasswordLength = def.MaxPasswordLength
	}
	if s.MaxDataFileBytes <= 0 {
		s.MaxDataFileBytes = def.MaxDataFileBytes
	}
	if s.Audit.Backend != AuditBackendSQLite {
		s.Audit.Backend = AuditBackendStore
	}

	return s
}

func stringFromConfig(key, def string) string {
	if v := strings.TrimSpace(gconfig.S.GetString(key)); v != "" {
		return v
	}
	return def
}

// intFromConfig reads an int configuration value with a default fallback.
func intFromConfig(key string, def int) int {
	return int(int64FromConfig(key, int64(def)))
}

// int64FromConfig reads an int64 configuration value with a default fallback.
func int64FromConfig(key string, def int64) int64 {
	switch v := gconfig.S.Get(key).(type) {
	case nil:
		return def
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return def
		}
		var parsed int64
		if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// boolFromConfig reads a boolean configuration value with a default fallback.
func boolFromConfig(key string, def bool) bool {
	switch v := gconfig.S.Get(key).(type) {
	case nil:
		return def
	case bool:
		return v
	case int:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}
