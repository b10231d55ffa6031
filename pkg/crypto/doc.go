/*
Package crypto implements Engram's envelope encryption, key hierarchy, and
recovery primitives.

# Key hierarchy

Master Key (MK, 32B): device-local, held in the OS keychain (consumed here
only through the KeyVault interface); encrypts artifacts other than vault
contents.

Vault Key (VK, 32B): encrypts secrets and sync blobs across devices; wrapped
per-device with RSA-4096-OAEP for authorization (WrapVaultKeyForDevice /
UnwrapVaultKey).

Blind-Index Key (BK, ≥32B): an HMAC-SHA256 key for computing
privacy-preserving lookup ids of secret and memory names (BlindIndex).

A Service holds an exclusive reference to one key for its lifetime; a
second Service over a different key (e.g. the vault key instead of the
master key) is a separate instance and shares no mutable state.

# Envelope format

Encrypt pads plaintext to a multiple of 4096 bytes — a 4-byte big-endian
length header, the plaintext, then random pad — then seals it with
AES-256-GCM under a fresh 12-byte IV. The wire form is
base64(ciphertext) + "." + base64(tag), with the IV transmitted alongside
as its own base64 field. Padding exists so that ciphertext length does not
leak the size of short secrets.

Decrypt fails with engerrors.AuthError if the GCM tag does not verify, or
engerrors.FormatError if the envelope lacks its "."-delimited tag. Both are
fatal for that call: callers must not retry with a different key or fall
back to a cached plaintext.

# Recovery

GenerateRecoveryPhrase/PhraseToKey/KeyToPhrase round-trip a 32-byte key
through a 24-word BIP39 mnemonic. GenerateRecoveryKit Shamir-splits the
vault key into n shares (k-of-n); RecoverFromKit combines k or more of them
back into the original key, failing with engerrors.RecoveryError on
malformed or insufficient shares. Recovery kits are never persisted by this
package — generate, display once, discard.
*/
package crypto
