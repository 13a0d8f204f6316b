// Package config defines the assembly configuration and provides helpers to
// load, validate and render it in YAML format.
//
// The Config type groups the input archives and assets, the image metadata
// and signing parameters, the launcher settings, the output location and the
// logging switches consumed by the pipeline.
package config
