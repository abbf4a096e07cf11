// Package config provides configuration management for bearer.
//
// Configuration is loaded from a single directory containing config.yaml.
// The default configuration directory is ~/.config/bearer, but users can
// specify a custom directory using the --config-path flag in commands.
//
// A missing config.yaml is not an error: loading falls back to the built-in
// defaults, which are sufficient for static-token use and for OAuth setups
// configured entirely through flags. Values present in the file override the
// defaults field by field.
package config
