// Package config handles conversion settings and the versioned field-name
// mapping tables used by the legacy format adapters.
//
// Defaults are embedded (defaults.yml). A biteen.yml (or config.yml) in the
// working directory overrides conversion settings and adds or replaces
// mappings; everything is validated using struct tags. Supporting a new
// legacy format means supplying a new mapping, not new code.
package config
