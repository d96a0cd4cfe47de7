// Package config defines configuration for the triagedl CLI.
//
// Configuration can be provided via:
//   - YAML configuration file
//   - Environment variables (TRIAGEDL_ prefix)
//   - Command-line flags
//
// Later sources override earlier ones. Durations are written as Go duration
// strings ("2s", "100ms").
//
// # Example
//
//	base_url: https://tria.ge
//	domain: tria.ge
//	credentials_file: credentials.yaml
//	download_dir: downloads
//	workers: 1
//	item_delay: 100ms
//	auth:
//	  scheme: cookie
//	  required_keys: [session, csrftoken]
//	retry:
//	  attempts: 5
//	  backoff: 2s
//	  max_backoff: 10s
//	log:
//	  level: info
//	  format: text
//
// Credential values never live here; they are loaded from the bundle file.
package config
