/*
Package session serializes access to profile progress documents.

A Manager wraps a ports.ProgressStore with per-profile locks. Locks are
reference counted and dropped once no caller holds them, and can be backed by
a ports.DistributedLocker when several replicas share one store.
*/
package session
