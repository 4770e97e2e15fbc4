// Package domain defines the core domain types and interfaces.
//
// Matches and their commentary entries, the repositories persisting them and the
// publisher contract the write path uses to notify live subscribers.
// No implementation code - just contracts.
package domain
