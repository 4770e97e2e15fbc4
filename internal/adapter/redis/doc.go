// Package redis provides the Redis-backed pieces of connection admission:
// a client constructor with resilience hooks and a per-IP connect rate gate
// whose token buckets are shared by every process using the same Redis.
package redis
