// Package types defines the Hiven entity kinds known to the client: their
// wire schemas, the per-kind normalizers that validate and flatten raw
// payloads into cache records, and the high-level views constructed from
// those records.
//
// # Records and views
//
// A record is a map[string]any produced by a normalizer: schema-validated,
// reference-flattened (embedded objects replaced by their ids) and with
// numeric/string ambiguity coerced to one canonical representation. Records
// are what the cache store keeps. A view (User, House, Room, ...) is a typed
// snapshot constructed from a record copy; it does not observe later cache
// mutations.
//
// # Validation
//
// Each kind carries a JSON schema compiled with gojsonschema. Unknown
// additional fields and missing required fields are rejected as malformed
// payloads rather than silently dropped.
package types
