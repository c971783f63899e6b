// Package setup assembles the uploader's configuration: built-in defaults,
// an optional YAML file in the project, and environment overrides.
//
// The result is a plain value handed to the rest of the program at startup;
// this is the only package that keeps a package-level logger.
package setup
