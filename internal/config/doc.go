// Package config defines the probe settings and helpers to load, validate
// and save them in YAML format.
//
// Every field is optional; Validate fills defaults so a missing default
// settings file behaves like an empty one.
package config
