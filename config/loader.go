package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/biteenlab/biteen-utilities/utils"
)

//go:embed defaults.yml
var defaultsYAML []byte

// Config is the global application configuration
var Config = Default()

// Default returns the embedded configuration.
func Default() AppConfig {
	var cfg AppConfig
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic("config: embedded defaults: " + err.Error())
	}
	return cfg
}

// LoadAppConfig loads biteen.yml (or config.yml) from the working directory
// into Config.
func LoadAppConfig() error {
	paths := []string{"biteen.yml", "config.yml"}
	var err error
	for _, p := range paths {
		var cfg AppConfig
		cfg, err = LoadFromFile(p)
		if err == nil {
			Config = cfg
			return nil
		}
		if !os.IsNotExist(err) {
			return err
		}
	}
	return err
}

// LoadFromFile reads path on top of the embedded defaults and validates the
// result. Mappings from the file replace defaults with the same format and
// version and add the rest.
func LoadFromFile(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, err
	}
	cfg := Default()
	defaults := cfg.Mappings
	cfg.Mappings = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("%w: %s: %v", utils.ErrInvalidParameter, path, err)
	}
	cfg.Mappings = mergeMappings(defaults, cfg.Mappings)
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks struct tags and the one-to-one contract of every mapping.
func (c AppConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrInvalidParameter, err)
	}
	for _, m := range c.Mappings {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func mergeMappings(base, override []FieldMapping) []FieldMapping {
	out := append([]FieldMapping(nil), base...)
	for _, m := range override {
		replaced := false
		for i := range out {
			if out[i].Format == m.Format && out[i].Version == m.Version {
				out[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, m)
		}
	}
	return out
}
