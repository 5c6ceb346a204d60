// Package store provides the ephemeral TTL-keyed value store that backs every
// counter, lockout record, dynamic deny entry, and audit fact in goAdmit.
//
// # Contract
//
// All entries expire on their own once the TTL elapses; callers never sweep.
// [Store.Incr] is the only read-modify-write primitive and it is atomic: two
// concurrent increments of the same key observe distinct pre-increment values.
// Plain Get/Set is last-write-wins and must not be used to maintain counters.
//
// # Implementations
//
// [Redis] is the networked variant (INCR plus conditional EXPIRE, the same
// fixed-window idiom used for every counter key). [Memory] is the in-process
// variant for tests, examples, and single-node deployments.
//
// # What this package must NOT do
//
//   - Interpret keys or values (policy lives in the engine and its internal
//     packages).
//   - Import goAdmit or any sibling package.
package store
