// Package config handles loading and validating valve bridge configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Secrets (JWT secret, MQTT password, InfluxDB token) should be set via
//     environment variables
//   - An empty JWT secret is replaced by a random one at startup, so tokens
//     do not survive a restart
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("VALVEBRIDGE_CONFIG"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.DeviceAddr())
package config
