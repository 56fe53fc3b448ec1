package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.HTTP.Enabled {
		return fmt.Errorf("http: at least one adapter must be enabled")
	}

	if cfg.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("http.shutdown_timeout: must be > 0")
	}

	if cfg.Metrics.Enabled && cfg.HTTP.Port > 0 && cfg.Metrics.Port == cfg.HTTP.Port {
		return fmt.Errorf("metrics.port: %d is already used by the http adapter", cfg.Metrics.Port)
	}

	switch cfg.Store.Type {
	case "filesystem":
		if path, _ := cfg.Store.Filesystem["path"].(string); path == "" {
			return fmt.Errorf("store.filesystem.path: required when store.type is filesystem")
		}
	case "s3":
		if bucket, _ := cfg.Store.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("store.s3.bucket: required when store.type is s3")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
