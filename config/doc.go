// Package config loads semreason configuration.
//
// Configuration starts from Default, merges YAML or JSON layers with
// last-wins semantics, then applies SEMREASON_* environment overrides:
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/base.yaml")
//	loader.AddLayer("configs/production.yaml")
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Durations are written as Go duration strings ("5s", "100ms").
//
// # Layer Merging
//
//	base.yaml:
//	  scheduler: {batch_size: 50, reasoning_delay: 2s}
//
//	production.yaml:
//	  scheduler: {batch_size: 500}
//
//	Result:
//	  scheduler: {batch_size: 500, reasoning_delay: 2s}
//
// # Environment Variable Overrides
//
//	export SEMREASON_NATS_URLS="nats://server1:4222,nats://server2:4222"
//	export SEMREASON_REASONER_BACKEND=remote
//	export SEMREASON_SCHEDULER_REASONING_DELAY=10s
//
// # Security
//
// Config files are limited to 10MB and 100 levels of nesting, must be
// regular files with a .yaml, .yml or .json extension, and relative paths
// may not escape the working directory.
package config
