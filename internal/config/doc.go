// Package config loads and validates Clipsight's TOML configuration.
//
// Configuration is resolved from an explicit path, then
// ~/.config/clipsight/config.toml, then a clipsight.toml in the working
// directory. Missing files are not an error; defaults apply.
package config
