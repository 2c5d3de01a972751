// Package query models faceted browse requests over the archive: an
// immutable Spec combining status selectors, content type, tag sets with
// AND/OR semantics, and free-text search, rendered as a single SQL
// conjunction with stable ordering and pagination math.
package query
