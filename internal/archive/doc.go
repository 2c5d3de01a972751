// Package archive persists the media archive in SQLite and is the single
// source of truth for item state. Every stage claim goes through an
// optimistic compare-and-set on the item's per-stage status column, so the
// ephemeral dispatch layer may lose or duplicate messages without
// corrupting the archive.
package archive
