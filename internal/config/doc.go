// Package config handles loading and validating relay-latch configuration.
//
// This package manages:
//   - Loading configuration from a YAML file
//   - Overriding with RELAY_LATCH_* environment variables
//   - Validation of ranges and enumerated values
//   - Default value handling
//
// A missing file is not fatal for the daemon: callers fall back to
// Default() and keep the output controllable.
//
// Usage:
//
//	cfg, err := config.Load("/etc/relay-latch/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.HTTP.Addr)
package config
