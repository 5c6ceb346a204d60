// Package middleware adapts the goAdmit engine to net/http. Each guarded
// endpoint declares an explicit [Policy] — its throttle purpose, an optional
// account-key extractor, and skip predicates — instead of relying on any
// metadata or reflection machinery.
//
// Denials map to transport responses here and only here: 429 for exhausted
// rate windows, 403 for everything else. The engine itself never constructs
// responses.
package middleware
