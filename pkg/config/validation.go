package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/guzman109/ArrayMorph/pkg/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and cross-field constraints.
//
// Backend credentials and bucket names are not checked here; CreateStore
// reports them when a backend is actually needed, so commands that never
// touch storage (plan, config show) run without them.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if _, err := store.ParsePlatform(cfg.Storage.Platform); err != nil {
		return fmt.Errorf("storage.platform: %w", err)
	}

	if cfg.Processing.Enabled && cfg.Processing.Bucket == "" {
		return errors.New("processing.bucket is required when processing is enabled")
	}

	return nil
}

// formatValidationErrors renders each failure as "<Namespace>: <tag>".
func formatValidationErrors(verrs validator.ValidationErrors) error {
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			errs = append(errs, fmt.Errorf("%s: failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		errs = append(errs, fmt.Errorf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.Join(errs...)
}
