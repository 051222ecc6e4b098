// Package api exposes configured stores over a read-only HTTP surface:
// listing, criteria queries with projection and limits, and
// single-field distinct values. Writes stay with the builder pipeline;
// the API never calls Update.
package api
