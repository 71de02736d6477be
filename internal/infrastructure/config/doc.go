// Package config loads and validates Gray Logic Link configuration.
//
// Values come from three layers, each overriding the previous one:
// built-in defaults, the YAML file, then GRAYLINK_* environment variables.
// Validate reports every problem in one error rather than stopping at the
// first.
//
// Secrets (MQTT password, InfluxDB token) should be supplied through the
// environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Hub.Name, cfg.Profiles.LocaleTag())
package config
