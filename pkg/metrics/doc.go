/*
Package metrics provides Prometheus metrics collection and exposition for
Engram.

Metrics are registered at package init against the default Prometheus
registry and exposed via Handler() for scraping. A Collector periodically
samples store sizes (memories, secrets, devices) into gauges; everything
else is updated inline by the package whose operation it measures.

# Metric categories

Store gauges:
  - engram_memories_total, engram_secrets_total, engram_devices_total

Memory operations:
  - engram_memory_create_duration_seconds
  - engram_memory_search_duration_seconds
  - engram_dlp_redactions_total{label}

Indexing pipeline:
  - engram_indexed_files_total{state}
  - engram_indexing_duration_seconds
  - engram_watcher_events_total{type}

Sync engines:
  - engram_sync_push_total{stream,outcome}
  - engram_sync_pull_total{stream,outcome}
  - engram_sync_cursor{stream}

MCP facade:
  - engram_mcp_tool_calls_total{tool,outcome}
  - engram_mcp_tool_duration_seconds{tool}

# Usage

	metrics.SetVersion(version)
	metrics.RegisterComponent("storage", true, "")

	collector := metrics.NewCollector(memoryStore, secretsStore, syncEngine)
	collector.Start()
	defer collector.Stop()

	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())

Timing an operation:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MemoryCreateDuration)

# Health and readiness

GetHealth aggregates all registered components; GetReadiness additionally
requires the critical set ("storage", "crypto", "vault") to be present and
healthy before reporting ready, matching the daemon's startup order: open
the database, unlock the crypto service, load the vault key.
*/
package metrics
