package config

// Unmapped-column policies for exports to formats with a fixed field set.
const (
	PolicyWarn   = "warn"
	PolicyIgnore = "ignore"
	PolicyError  = "error"
)

// Mapping format names.
const (
	FormatSmallLabs = "smalllabs"
	FormatSpotOn    = "spoton"
)

// ConversionConfig contains unit and policy settings shared by the adapters
type ConversionConfig struct {
	PixelSizeUM      float64 `yaml:"pixelSizeUM" validate:"gt=0"`
	FrameIntervalS   float64 `yaml:"frameIntervalS" validate:"gt=0"`
	UnmappedPolicy   string  `yaml:"unmappedPolicy" validate:"oneof=warn ignore error"`
	TrajectoryIDBase int     `yaml:"trajectoryIDBase" validate:"gte=0"`
}

// FieldPair maps one canonical column to one external field name
type FieldPair struct {
	Column string `yaml:"column" validate:"required"`
	Field  string `yaml:"field" validate:"required"`
}

// FieldMapping is one version of the canonical -> external field table for a format
type FieldMapping struct {
	Format  string      `yaml:"format" validate:"required"`
	Version int         `yaml:"version" validate:"gte=1"`
	Fields  []FieldPair `yaml:"fields" validate:"required,dive"`
	// Derived columns are rebuilt on import and skipped silently on export.
	Derived []string `yaml:"derived,omitempty"`
	// Order is the fixed on-disk field order for flat formats.
	Order []string `yaml:"order,omitempty"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Conversion ConversionConfig `yaml:"conversion"`
	Mappings   []FieldMapping   `yaml:"mappings" validate:"dive"`
}
