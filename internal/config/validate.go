package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// ValidationError represents an invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the settings for required fields and valid values.
func Validate(s *Settings) error {
	var errs []string

	if strings.TrimSpace(s.InstallDir) == "" {
		errs = append(errs, ValidationError{Field: "install_dir", Message: "install directory is required"}.Error())
	}

	if s.MaxRetries < 1 {
		errs = append(errs, ValidationError{
			Field:   "max_retries",
			Message: fmt.Sprintf("must be at least 1, got %d", s.MaxRetries),
		}.Error())
	}

	if s.RetryBase < 0 {
		errs = append(errs, ValidationError{Field: "retry_base", Message: "must not be negative"}.Error())
	}
	if s.SettleTime < 0 {
		errs = append(errs, ValidationError{Field: "settle_time", Message: "must not be negative"}.Error())
	}
	if s.HTTP.Timeout < 0 {
		errs = append(errs, ValidationError{Field: "http.timeout", Message: "must not be negative"}.Error())
	}

	if err := validateCurl(s.Curl); err != nil {
		errs = append(errs, err.Error())
	}

	if err := validateRelease(s.Release); err != nil {
		errs = append(errs, err.Error())
	}

	if s.LogLevel != "" {
		if _, err := log.ParseLevel(s.LogLevel); err != nil {
			errs = append(errs, ValidationError{
				Field:   "log_level",
				Message: fmt.Sprintf("invalid level '%s' (must be debug, info, warn, or error)", s.LogLevel),
			}.Error())
		}
	}

	for i, name := range s.Processes {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("processes[%d]", i),
				Message: "process name cannot be empty",
			}.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func validateCurl(c CurlSettings) error {
	if c.Path == "" {
		return ValidationError{Field: "curl.path", Message: "curl executable is required"}
	}
	if c.ConnectTimeout < 0 || c.MaxTime < 0 || c.Retries < 0 {
		return ValidationError{Field: "curl", Message: "timeouts and retries must not be negative"}
	}
	return nil
}

func validateRelease(r ReleaseSettings) error {
	if r.Owner == "" || r.Repo == "" {
		return ValidationError{Field: "release", Message: "owner and repo are required"}
	}
	if !strings.Contains(r.Asset, "{tag}") && !strings.Contains(r.Asset, "{version}") {
		return ValidationError{
			Field:   "release.asset",
			Message: fmt.Sprintf("asset template '%s' must contain {tag} or {version}", r.Asset),
		}
	}
	return nil
}
