// Package config loads runtime configuration for the autoservice console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional YAML file selected via -c or -config.
//  3. Environment variables prefixed with AUTOSERVICE_; nested keys are
//     separated by a double underscore (AUTOSERVICE_API__BASE_URL).
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   backend base URL (scheme://host:port)
//	-s string   storage DSN (SQLite file path or redis address)
//	-l string   log level (debug|info|warn|error)
//
// # YAML schema
//
//	api:
//	  base_url: http://127.0.0.1:8080
//	  version_prefix: /api/v1
//	  timeout: 10s
//	  rate_limit: 20
//	  burst: 5
//	storage:
//	  driver: sqlite
//	  dsn: autoservice.db
//	log:
//	  level: info
//	  format: text
package config
