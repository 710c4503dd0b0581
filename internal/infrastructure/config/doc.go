// Package config handles loading and validating the IR bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GRAYLOGIC_IR_*)
//   - Validation of required fields, aggregated into one error
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, JWT secret, InfluxDB token) should be
//     set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.DeviceID)
package config
