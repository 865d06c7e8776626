// Package rate implements the hourly sliding-window request limiter.
//
// # Window semantics
//
// A window opens on the first request seen for a key and lasts one window
// length. Once the window has elapsed the next request resets it. Within a
// window, requests are admitted until the count reaches the limit; rejected
// requests do not consume quota.
//
// [Window] keeps state in process memory with one mutex per key and a
// periodic sweep. [RedisWindow] runs the same check-and-increment as a Lua
// script so several instances share one budget per key:
//
//   - rl:<key> hash with fields s (window start, unix ms) and c (count)
//
// # What this package must NOT do
//
//   - Decide traffic classes or limits (the caller passes the limit).
//   - Be imported outside the adminauth module.
package rate
