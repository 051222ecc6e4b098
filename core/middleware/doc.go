// Package middleware groups the HTTP middleware used by the query API.
package middleware
