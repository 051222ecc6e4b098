// Package database wires GORM to MySQL for the relational document
// store: DSN construction with encoded credentials and bounded setup and
// I/O timeouts, pool sizing, and a ping that verifies the connection
// before any store operation runs.
package database
