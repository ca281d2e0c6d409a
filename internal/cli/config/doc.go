// Package config provides configuration for the snapdist CLI.
//
// Settings come from three sources, later ones overriding earlier:
//
//  1. Built-in defaults
//  2. Config file (~/.snapdist/cli.yaml by default)
//  3. SNAPDIST_* environment variables
package config
