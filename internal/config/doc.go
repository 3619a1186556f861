// Package config loads galley's TOML configuration.
//
// # Configuration Discovery
//
// Load reads the given path, or ~/.config/galley/config.toml when the path
// is empty. A missing file is not an error; defaults apply. Keys that are
// present but blank also fall back to their defaults.
//
// # TOML Format
//
//	api_base = "127.0.0.1:8750"
//	schema_path = "~/.config/galley/grids.yaml"
//	data_dir = "~/.local/share/galley"
//	log_level = "info"
//	save_policy = "promote"        # or "refetch"
//	request_timeout_seconds = 10
//
// An empty schema_path selects the built-in grids.
//
// # Derived Paths
//
//   - LogPath: <data_dir>/galley.log
//   - SessionDBPath: <data_dir>/session.db
//   - ExportDir: <data_dir>/exports
//
// Tilde paths expand to the home directory; relative paths become absolute.
package config
