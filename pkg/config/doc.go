// Package config provides configuration management for lazyproxy.
//
// Configuration is read from an optional YAML file, completed with defaults
// and then overridden by environment variables. Environment variables follow
// the naming convention LAZYPROXY_SECTION_FIELD (e.g.
// LAZYPROXY_LIFECYCLE_IDLE_TIMEOUT). The variables understood by earlier
// deployments of the lazy manager are honoured as well:
//
//	PROJECT_NAME   orchestrator.project
//	DEMOS_DIR      orchestrator.work_dir (APP_DIR is accepted as an alias)
//	IDLE_TIMEOUT   lifecycle.idle_timeout, in seconds or as a Go duration
//
// # Loading
//
//	cfg, err := config.Load("lazyproxy.yaml", false)
//
// When the file does not exist and is not required, defaults plus environment
// are used. A .env file can be loaded into the process environment first with
// LoadDotEnv.
//
// # Hot reload
//
// Watcher observes the configuration file and calls back with the new
// configuration after a debounce interval. Only lifecycle settings are applied
// at runtime; everything else requires a restart.
package config
