// Package auth implements user authentication and authorization for pkgmcp.
//
// It is made of four pieces that build on each other:
//
//   - Identity model: User, Role and the API key primitives (GenerateAPIKey, HashAPIKey)
//   - Store: a JSON file of users, rewritten whole on every mutation through an
//     atomic temp-file rename
//   - Authenticator: turns a raw credential into an Outcome according to the
//     configured mode (disabled, legacy single key, or per-user keys)
//   - Policy: decides whether an identity may perform an Operation
//
// # Store file
//
// The store is a JSON document with a single "users" list:
//
//	{"users": [{"username": "admin", "api_key_hash": "<sha256 hex>", "role": "admin", "created_at": "2025-01-02T15:04:05Z"}]}
//
// Plaintext API keys are never written. The file is kept at mode 0600 and its
// parent directory is created on demand.
//
// # Concurrency
//
// Mutations on a Store are serialized by a mutex held across the whole
// read-check-write cycle. The lock is process-local: two processes sharing a
// store file can still race, and the last writer wins. Readers never observe
// a partially written file.
//
// # Usage
//
//	store := auth.NewStore(cfg.UsersFile, logger)
//	authn := auth.NewAuthenticator(auth.Settings{EnableAuth: true, EnableUserAuth: true}, store, logger)
//	policy := auth.NewPolicy(true, logger)
//
//	outcome := authn.Authenticate(apiKey)
//	if outcome.Denied() {
//	    return outcome.Err()
//	}
//	if !policy.CheckPermission(outcome.User, auth.OpInstall) {
//	    return errPermissionDenied
//	}
package auth
