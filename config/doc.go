// Package config loads the bridge's runtime configuration from the
// environment. Values may reference other environment variables with
// ${VAR} syntax, which is expanded strictly: a referenced variable that is
// unset fails the load instead of silently becoming empty.
package config
