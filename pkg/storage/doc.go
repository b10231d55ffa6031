/*
Package storage provides the shared SQLite substrate for the memory and
secrets stores.

# Schema

	memories(id, content, tags, source, confidence, is_verified, created_at, updated_at)
	memories_vec(memory_id, embedding)         -- vec0 virtual table, ANN index
	sync_events(id, event_type, memory_id, encrypted_data, checksum, timestamp, sequence_num)
	secrets(id, key_name UNIQUE, encrypted_value, iv, description, created_at, updated_at)
	local_secret_sync_events(id, event_type, secret_id, encrypted_data, iv, checksum, blind_id, timestamp, sequence_num)
	sync_state(key, value)                      -- per-stream pull cursors
	local_vault_key(id='default', vault_key, created_at, updated_at)
	devices(id, name, public_key, created_at, last_sync_at)
	indexing_events(id, type, path, detail, timestamp)

Table and column names above are semantic; bootstrap creates them verbatim.

# Vector search

The memories_vec virtual table is powered by sqlite-vec (vec0). A KNN
lookup is a MATCH query:

	SELECT memory_id, distance FROM memories_vec
	WHERE embedding MATCH ? AND k = ?
	ORDER BY distance

SerializeVector encodes a []float32 into the BLOB vec0 expects and
validates it against the store's configured dimension before it ever
reaches SQL.

# Concurrency

Open enables WAL mode and caps the connection pool at one, matching the
single-writer discipline: all store operations are synchronous with
respect to one writer, and WithTx guarantees a main-table write and its
corresponding vector-index write land in the same transaction or not at
all.
*/
package storage
