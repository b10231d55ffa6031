// Package sync implements the Memory and Secrets Sync Engines and the
// device-authorization registry that shares a vault key across devices.
//
// Both engines follow the same Disconnected -> Connected state machine:
// every push/pull/authorize/revoke call refuses to run until Connect has
// been called, and Disconnect returns the engine to its initial state with
// no intermediate transitions. Cursors are persisted in the shared
// sync_state table so a restart resumes from the last acknowledged
// position rather than re-pulling the whole remote history.
//
// SecretsEngine additionally implements secrets.Syncer so it can be
// injected into a secrets.Store without that package importing sync
// directly; the Store always writes locally first and treats a push
// failure as a logged, swallowed event rather than a rollback trigger.
package sync
