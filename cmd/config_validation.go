package cmd

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/laisky-vfs/internal/vfs"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateListenConfig(get, &validationErrs)
	validateVFSConfig(get, &validationErrs)
	validateAuditConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateListenConfig validates the listen addresses.
func validateListenConfig(get configGetter, errs *[]string) {
	validateOptionalHostPort(get, "listen", false, errs)
	validateOptionalHostPort(get, "grpc_listen", true, errs)
}

// validateVFSConfig validates storage, token and limit settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateVFSConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.vfs.in_memory", errs)
	validateOptionalStringNonEmpty(get, "settings.vfs.db_path", errs)
	validateOptionalStringNonEmpty(get, "settings.vfs.key_dir", errs)
	validateOptionalStringNonEmpty(get, "settings.vfs.token_issuer", errs)
	validateOptionalIntMin(get, "settings.vfs.token_ttl_minutes", 1, errs)
	validateOptionalIntMin(get, "settings.vfs.max_activation_codes", 1, errs)
	validateOptionalIntMin(get, "settings.vfs.max_password_length", 1, errs)
	validateOptionalInt64Min(get, "settings.vfs.max_data_file_bytes", 1, errs)
}

// validateAuditConfig validates the audit sink selection.
func validateAuditConfig(get configGetter, errs *[]string) {
	validateOptionalStringIn(get, "settings.vfs.audit.backend",
		[]string{vfs.AuditBackendStore, vfs.AuditBackendSQLite}, errs)
	validateOptionalStringNonEmpty(get, "settings.vfs.audit.sqlite_path", errs)

	backend, _ := parseStrictString(get("settings.vfs.audit.backend"))
	if strings.EqualFold(strings.TrimSpace(backend), vfs.AuditBackendSQLite) && get("settings.vfs.audit.sqlite_path") == nil {
		appendValidationError(errs, "settings.vfs.audit.sqlite_path is required when settings.vfs.audit.backend is %q", vfs.AuditBackendSQLite)
	}
}

// validateOptionalHostPort validates an optionally configured host:port key.
// An empty value is accepted when allowEmpty is set.
func validateOptionalHostPort(get configGetter, key string, allowEmpty bool, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string address", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if !allowEmpty {
			appendValidationError(errs, "%s must not be empty", key)
		}
		return
	}

	if _, port, err := net.SplitHostPort(trimmed); err != nil || port == "" {
		appendValidationError(errs, "%s must be a host:port address", key)
	}
}

// validateOptionalStringIn validates an optionally configured key against allowed values.
// Comparison ignores case and surrounding spaces.
func validateOptionalStringIn(get configGetter, key string, allowed []string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range allowed {
		if normalized == candidate {
			return
		}
	}
	appendValidationError(errs, "%s must be one of %s", key, strings.Join(allowed, ", "))
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalInt64Min validates an optionally configured int64 key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalInt64Min(get configGetter, key string, min int64, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt64(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictInt64 parses a value as a strict int64.
// It accepts a raw value and returns the parsed int64 and an error when parsing fails.
func parseStrictInt64(value any) (int64, error) {
	parsed, err := parseStrictInt(value)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int64(parsed), nil
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
