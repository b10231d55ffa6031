// Package mcp is the Model Context Protocol facade over Engram's stores.
//
// Every tool handler is registered through wrapTool, which converts both a
// returned error and a recovered panic into an isError result reading
// "<Category> failed: <message>" — no handler ever propagates a panic or a
// raw error value to the transport. Handlers that need a collaborator that
// was never configured (no embedder, no vault key, no device registry)
// return a plain sentinel error so that message reads exactly as the
// literal template calls for, rather than through the richer engerrors
// taxonomy used everywhere else in the module.
package mcp
