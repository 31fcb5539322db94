/*
Package session serializes access to conversation sessions.

It wraps a SessionStore with per-session locking (reference-counted local
mutexes, plus an optional distributed locker for multi-replica deployments) so
the engine can treat each inbound message as an exclusive read-modify-write of
one session.
*/
package session
