// Package config loads runtime configuration for the fieldmate client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config or $FIELDMATE_CONFIG.
//  3. A .env file in the working directory, if present.
//  4. FIELDMATE_* environment variables.
//  5. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the job-management backend
//	-k string   API key sent with every request
//	-d string   directory for the local cache and store key
//	-i int      online status check interval (seconds)
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Intervals accept Go duration strings or integer nanoseconds:
//
//	{
//	  "server_url": "https://api.example.com",
//	  "api_key": "public-anon-key",
//	  "notification_poll_interval": "15m",
//	  "location_queue_cap": 5000
//	}
package config
