// Package logger provides the structured logging facility based on Zap.
//
// The CLI uses console encoding with colored levels; services switch to
// json encoding through configuration. WithRayID attaches the per-request
// ray id from a Fiber context so the log lines of one API request can be
// correlated.
package logger
