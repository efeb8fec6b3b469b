// Package cqrs moves a running note service from one store backend to another
// without dual writes.
//
// [CQRSStore] wraps a primary and a secondary [github.com/notekeeper/notekeeper/pkg/store.Store].
// Reads and writes are routed by [MigrationMode]:
//
//	mode       reads      writes
//	single     primary    primary
//	read_only  primary    rejected with store.ErrReadOnly
//	switching  secondary  primary
//	reversed   secondary  secondary
//
// A migration usually runs background sync in single mode, switches to
// read_only for a final catch-up, validates the secondary in switching mode,
// then calls [CQRSStore.SwapStores] and returns to single.
//
// Sync is timestamp based. Both stores must implement
// [github.com/notekeeper/notekeeper/pkg/store.Replicator]; every note or user
// whose createdAt or updatedAt falls in the window is copied over, keeping its
// id and timestamps. Every backend leaves a tombstone when it deletes a record,
// and the tombstones in the window are replayed on the destination after the
// copies.
//
// [CQRSStore.StartContinuousSync] repeats the pass on a timer, always copying
// from the store that currently takes writes.
package cqrs
