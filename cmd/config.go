package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"db-lens/internal/catalog"
	"db-lens/internal/dialect"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	Active bool   `mapstructure:"active"`
}

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var activeConfig *DBConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}

	return activeConfig, nil
}

// newDiscoverer assembles a discovery pass from flags and config: flags win,
// the discovery.* config keys fill the gaps.
func newDiscoverer(strategy dialect.Strategy) *catalog.Discoverer {
	schema := SchemaName
	if schema == "" {
		schema = viper.GetString("discovery.schema")
	}
	include := includeTables
	if len(include) == 0 {
		include = viper.GetStringSlice("discovery.include")
	}
	exclude := excludeTables
	if len(exclude) == 0 {
		exclude = viper.GetStringSlice("discovery.exclude")
	}
	return &catalog.Discoverer{
		DB:            DB,
		Strategy:      strategy,
		Schema:        schema,
		Include:       include,
		Exclude:       exclude,
		TypeOverrides: typeOverrides(),
		Logger:        Logger,
	}
}

// typeOverrides reads the types.overrides map (native type name to logical
// type) from the config file.
func typeOverrides() map[string]catalog.LogicalType {
	raw := viper.GetStringMapString("types.overrides")
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]catalog.LogicalType, len(raw))
	for native, logical := range raw {
		out[native] = catalog.LogicalType(logical)
	}
	return out
}
