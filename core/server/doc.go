// Package server holds the listen configuration for the HTTP query API.
package server
