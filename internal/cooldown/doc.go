// Package cooldown keeps the shared "last exhaustion" timestamp per
// coordination key that retry coordinators consult before starting a cycle.
//
// Entries are created lazily by the first recorded failure for a key and are
// never removed for the lifetime of the store. Timestamps only move forward:
// concurrent writers racing on the same key cannot regress it.
//
// Two stores are provided:
//
//   - MemoryStore: process-wide registry guarded by a mutex per key.
//   - RedisStore: shares windows between processes through Redis, using a
//     Lua script so the monotonic update is atomic on the server.
//
// A store is passed explicitly to every coordinator that should share it.
package cooldown
