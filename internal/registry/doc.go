// Package registry models the persistent routing table of one router
// instance: the owner and admin set, the registered handler modules, the
// selector mappings that route calls to them, and the pause gate.
//
// Responsibilities:
// - Define the record with its declared capacity and name bounds.
// - Serialize records to the fixed-order little-endian slot layout and back.
// - Keep the hot cache of recently resolved selectors coherent with the
//   canonical mapping list.
//
// Non-responsibilities:
// - Authority checks and table mutation (internal/cut, internal/pause).
// - Slot derivation and persistence (internal/registrystore).
// - Dispatch semantics and call forwarding (internal/router).
package registry
