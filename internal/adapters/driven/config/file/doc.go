// Package file loads engine configuration from a TOML file, applying
// defaults and environment overrides for credentials.
package file
