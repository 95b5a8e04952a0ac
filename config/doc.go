// Package config provides application configuration management.
//
// The config package loads config.yaml through viper, applies defaults for
// every key and lets SNIPBOX_* environment variables override any of them
// (SNIPBOX_SANDBOX_MEMORY overrides sandbox.memory). Resource sizes accept
// the same notation as the container runtime, e.g. "256m" or "1g".
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Container runtime: %s\n", cfg.Sandbox.Runtime)
package config
