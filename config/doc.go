// Package config loads host settings from HOSTBRIDGE_* environment
// variables and builds the zap logger the rest of the host uses.
package config
