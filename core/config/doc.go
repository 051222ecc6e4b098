// Package config loads the application configuration: scalar sections
// (logging, server, builder) from struct-tag defaults overridden by a
// .env file and environment variables, and the named store definitions
// from an optional docpipe config file, since a map of store configs
// cannot be expressed through flat environment variables.
package config
