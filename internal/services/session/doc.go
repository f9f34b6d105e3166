// Package session opens client sessions on behalf of the CLI.
//
// It decides which key pair a session uses (a fresh one, or the stored
// identity when reuse is enabled) and, when pinning is enabled, checks the
// server key against the known-peers store: the first key seen for an
// address is trusted and any later change is refused.
package session
