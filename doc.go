// Package slotbed serves the media slots of a set of marketing pages.
//
// Each page declares a fixed registry of named image slots. The single
// administrator can replace the image behind a slot; anonymous visitors
// only ever see the current image per slot, resolved latest-wins from an
// append-only media log.
//
// Features:
// - Admin login and token refresh
// - Per-page slot resolution with in-memory caching
// - Slot image replacement (retire old, install new)
// - Rate limiting
//
// Example usage:
//   go run main.go
//
// Configuration:
//   See config/config.json for server settings and page registries
//
// API Documentation:
//   All endpoints are documented in the internal/api/handler.go file
package main
