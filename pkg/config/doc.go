// Package config provides configuration management for Switchboard.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("") // defaults + env only
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SWITCHBOARD_SECTION_FIELD:
//
//   - SWITCHBOARD_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - SWITCHBOARD_RESOLVER_CACHE_TTL overrides resolver.cache_ttl
//   - SWITCHBOARD_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//
// Provider variables accept any provider name (API_KEY, BASE_URL, TYPE,
// API_VERSION); a name absent from the file adds that provider.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// What this package does NOT hold: per-provider enablement, output caps,
// timeouts and retry counts. Those are resolved at request time by package
// settings from the settings store and its compiled default table.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//
//	providers:
//	  openai: {}
//	  anthropic: {}
//	  local:
//	    type: ollama
//	    base_url: "http://localhost:11434"
//
//	store:
//	  backend: sqlite
//	  sqlite:
//	    path: data/switchboard.db
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
