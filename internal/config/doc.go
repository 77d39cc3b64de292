// Package config loads livehooks configuration.
//
// Settings come from livehooks.yaml, starting from Default() and then
// overlaid with LIVEHOOKS_* environment variables. The first underscore
// after the prefix separates the section from the key, so
// LIVEHOOKS_SERVER_READ_TIMEOUT sets server.read_timeout.
//
// # Configuration File Structure
//
//	server:
//	  addr: localhost:4000
//	  live_path: /live
//	  read_timeout: 60s
//	  write_timeout: 10s
//	  heartbeat_interval: 30s
//	  allowed_origins: [https://app.example.com]
//	uploads:
//	  backend: s3
//	  bucket: drops
//	  prefix: incoming
//	  region: eu-west-1
//	  max_size: 10485760
//	client:
//	  url: ws://localhost:4000/live
//	  mobile_breakpoint: 768
//	log:
//	  level: debug
//	  format: json
//
// # Usage
//
//	cfg, err := config.LoadDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
