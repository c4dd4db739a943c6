// Package config loads and merges prreview configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PRREVIEW_PROVIDER, PRREVIEW_MODEL, DEBUG, etc.)
//  3. Config file ($XDG_CONFIG_HOME/prreview/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config].
package config
