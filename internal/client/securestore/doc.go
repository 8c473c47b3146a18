// Package securestore is the encrypted credential and session store of the
// client.
//
// Every field is sealed with AES-GCM under the device store key, using the
// field name as additional data, and persisted through the keyvalue
// repository. Decrypted values are cached in memory; all reads are served
// from that cache, and every committed mutation publishes an immutable State
// snapshot to subscribers (see Subscribe).
//
// The store is constructed once per process and passed to its consumers.
// Concurrent reads are safe; writes are serialized and the last write to a
// field wins.
package securestore
