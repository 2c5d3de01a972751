// Package services defines the shared error taxonomy and context plumbing
// used by stage workers and external service clients.
//
// Errors raised by clients are tagged with one of the sentinel markers so the
// worker framework can decide between bounded retry (transient, timeout) and
// terminal failure persisted to the archive. Subpackages hold the concrete
// clients for the source platform, speech-to-text, image text extraction, and
// zero-shot classification services.
package services
