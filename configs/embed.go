// Package configs embeds the configuration file templates.
//
// Templates are embedded at build time so they ship with every binary.
// Values in a template must match config.NewConfig(): writing a template
// and loading it back yields the defaults.
package configs

import _ "embed"

// ProjectConfigTemplate is the commented .amanrag.yaml written by
// `amanrag config init`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
