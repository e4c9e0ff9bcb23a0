// Package config provides configuration structures and utilities for scanherd.
// It defines the engine options for batch check-in runs, the optional YAML
// configuration file, and the credential and proxy list loaders.
package config
