// Package config defines the engine configuration schema and its YAML
// loader. Values are loaded from a file with ${VAR} environment expansion,
// then defaults fill unset optional fields and Validate rejects anything
// inconsistent before the engine starts.
package config
