// ABOUTME: Package session owns chat sessions, their lifecycle, and derived views
// ABOUTME: One registry, one active session, one writable working message list

// Package session implements conversation bookkeeping for the recall app.
//
// A Manager owns the full set of sessions for the running process plus the
// single "active" session that receives new messages. Sessions are held
// in-process only; durable memory lives in the memory package.
package session
