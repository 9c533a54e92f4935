// Package session stores the identity the CLI acts as. Signing in through an
// identity provider happens elsewhere; all the rest of worldip needs is the
// authenticated wallet address, persisted as a small TOML file in the state
// directory and guarded by a file lock so concurrent invocations never see a
// half-written session.
package session
