package cmd

import (
	"fmt"
	"net/url"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates the loaded configuration before any
// module connects to an external system. It returns an error when any
// configured value is malformed or a required value is missing.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.Shared.Get(key)
	})
}

func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateFirestoreConfig(get, &validationErrs)
	validateS3Config(get, &validationErrs)
	validateListenConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateFirestoreConfig validates the document-store settings.
func validateFirestoreConfig(get configGetter, errs *[]string) {
	validateRequiredString(get, "settings.gallery.project_id", errs)
	validateOptionalStringNonEmpty(get, "settings.gallery.credential_file", errs)
}

// validateS3Config validates the blob-store settings.
func validateS3Config(get configGetter, errs *[]string) {
	validateRequiredString(get, "settings.gallery.s3.endpoint", errs)
	validateRequiredString(get, "settings.gallery.s3.bucket", errs)
	validateRequiredString(get, "settings.gallery.s3.access_key", errs)
	validateRequiredString(get, "settings.gallery.s3.secret_key", errs)
	validateOptionalBool(get, "settings.gallery.s3.secure", errs)
	validateOptionalURL(get, "settings.gallery.s3.public_base_url", errs)

	// the minio client wants a bare host[:port], a scheme means the
	// endpoint was pasted from a browser
	if raw := get("settings.gallery.s3.endpoint"); raw != nil {
		if endpoint, err := parseStrictString(raw); err == nil &&
			strings.Contains(endpoint, "://") {
			appendValidationError(errs, "settings.gallery.s3.endpoint must not contain a scheme")
		}
	}
}

// validateListenConfig validates the HTTP listen address.
func validateListenConfig(get configGetter, errs *[]string) {
	raw := get("listen")
	if raw == nil {
		return
	}

	addr, err := parseStrictString(raw)
	if err != nil || strings.TrimSpace(addr) == "" {
		appendValidationError(errs, "listen must be a non-empty host:port string")
		return
	}
	if !strings.Contains(addr, ":") {
		appendValidationError(errs, "listen must include a port, like `localhost:8080`")
	}
}

// validateRequiredString validates a required non-empty string key.
func validateRequiredString(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}

	value, err := parseStrictString(raw)
	if err != nil || strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must be a non-empty string", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured
// non-empty string key.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, err := parseStrictString(raw)
	if err != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}
	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// validateOptionalBool validates an optionally configured boolean key.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalURL validates an optionally configured absolute URL
// key.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, err := parseStrictString(raw)
	if err != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, perr := url.Parse(trimmed)
	if perr != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion
// rules.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
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

// parseStrictString parses a value as a strict string.
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

func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
