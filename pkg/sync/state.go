package sync

import (
	"sync"

	"github.com/engramhq/engram/pkg/engerrors"
)

// connState is the lifecycle of a sync engine: Disconnected, then Connected
// after connect(); no transition returns to Disconnected except an explicit
// disconnect() call.
type connState int

const (
	stateDisconnected connState = iota
	stateConnected
)

// connection tracks the Disconnected/Connected state machine shared by
// MemoryEngine and SecretsEngine. Every network operation must go through
// requireConnected first.
type connection struct {
	mu    sync.RWMutex
	state connState
}

func (c *connection) connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateConnected
}

func (c *connection) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateDisconnected
}

func (c *connection) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == stateConnected
}

func (c *connection) requireConnected(op string) error {
	if !c.isConnected() {
		return engerrors.New(engerrors.NotInitialized, op)
	}
	return nil
}
