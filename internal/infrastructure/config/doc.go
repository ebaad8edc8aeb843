// Package config handles loading and validating thingsd configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (bootstrap password, MQTT credentials) should be
//     set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The default bootstrap password must be changed before production use
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Storage.Backend)
package config
