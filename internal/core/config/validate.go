package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// hook definitions and file accessibility. The configPath argument specifies the
// config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateVarsFiles(configPath),
		c.validateHooks(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	for i, h := range c.Hooks {
		if !h.IsEnabled() {
			warnings = append(warnings, ValidationWarning{
				Category: "Hooks",
				Item:     fmt.Sprintf("hooks[%d] %s", i, h.Name),
				Message:  "hook is disabled",
			})
		}
	}

	if c.Claims.SweepInterval > c.Claims.DefaultTTL {
		warnings = append(warnings, ValidationWarning{
			Category: "Claims",
			Message:  "sweep_interval is longer than default_ttl; expired claims linger until the next read",
		})
	}

	return warnings
}

// validateFileAccess checks config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateVarsFiles(configPath string) error {
	if len(c.VarsFiles) == 0 {
		return nil
	}

	configDir := filepath.Dir(configPath)
	var errs criterio.FieldErrorsBuilder

	for i, file := range c.VarsFiles {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir, path)
		}

		if _, err := os.Stat(path); err != nil {
			errs = errs.Append(fmt.Sprintf("vars_files[%d]", i), fmt.Errorf("file not found: %s", file))
		}
	}

	return errs.ToError()
}

// validateHooks checks every hook definition and rejects duplicate names.
func (c *Config) validateHooks() error {
	var errs criterio.FieldErrorsBuilder
	seen := make(map[string]int, len(c.Hooks))

	for i, h := range c.Hooks {
		field := fmt.Sprintf("hooks[%d]", i)

		if err := h.Validate(field); err != nil {
			var fieldErrs criterio.FieldErrors
			if errors.As(err, &fieldErrs) {
				for _, fe := range fieldErrs {
					errs = errs.Append(fe.Field, fe.Err)
				}
			} else {
				errs = errs.Append(field, err)
			}
		}

		if h.Name == "" {
			continue
		}
		if first, ok := seen[h.Name]; ok {
			errs = errs.Append(field+".name", fmt.Errorf("duplicate hook name %q (first defined at hooks[%d])", h.Name, first))
			continue
		}
		seen[h.Name] = i
	}

	return errs.ToError()
}
