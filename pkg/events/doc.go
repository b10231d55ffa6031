/*
Package events provides an in-memory event broker for the indexing pipeline.

The events package implements a lightweight pub/sub bus for broadcasting
per-file indexing progress (start, parsed, embedded, stored, skipped, error)
to interested subscribers such as a status command or the MCP facade. It
also retains a bounded ring of the 200 most recent events for callers that
want a snapshot rather than a live stream.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&types.IndexingEvent{Type: types.IndexingEventStart, Path: path})

	for ev := range sub {
		log.Info(string(ev.Type))
	}

Publish is non-blocking per subscriber: a subscriber whose buffer is full
misses the event rather than stalling the indexing pipeline.
*/
package events
