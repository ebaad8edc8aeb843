// Package auth implements credential handling for thingsd.
//
// Authentication is per-request HTTP Basic: every protected request
// carries a username/secret pair which is checked against the
// credential store. There are no sessions or tokens.
//
// # Known limitation
//
// Secrets are stored as an unsalted SHA-256 digest rendered as
// lowercase hex. The digest contract is deterministic by design (the
// same secret always produces the same stored value), which rules out
// per-user salts. Identical passwords therefore produce identical
// hashes, and the scheme is vulnerable to precomputed-table attacks.
// Deployments should treat the credential file/table as sensitive.
package auth
