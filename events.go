package twitch

import "sync"

// listenerSet holds the registered notification callbacks. Delivery is
// synchronous and in-process; events are not replayed, with one exception:
// the ready event is sticky, so a listener registered after initial setup
// completed is invoked immediately.
type listenerSet struct {
	mu      sync.Mutex
	ready   []func()
	refresh []func(Token)
	errs    []func(*APIError)

	readyFired bool
}

// OnReady registers a callback fired once initial setup has completed.
// If the client is already ready, fn runs synchronously before OnReady
// returns.
func (c *Client) OnReady(fn func()) {
	c.listeners.mu.Lock()
	fired := c.listeners.readyFired
	if !fired {
		c.listeners.ready = append(c.listeners.ready, fn)
	}
	c.listeners.mu.Unlock()

	if fired {
		fn()
	}
}

// OnTokenRefresh registers a callback fired with the new token payload
// whenever a refresh succeeds.
func (c *Client) OnTokenRefresh(fn func(Token)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.refresh = append(c.listeners.refresh, fn)
}

// OnError registers a callback fired with every APIError the dispatcher
// encounters, whether or not the request is subsequently retried.
func (c *Client) OnError(fn func(*APIError)) {
	c.listeners.mu.Lock()
	defer c.listeners.mu.Unlock()
	c.listeners.errs = append(c.listeners.errs, fn)
}

func (c *Client) emitReady() {
	c.listeners.mu.Lock()
	c.listeners.readyFired = true
	fns := c.listeners.ready
	c.listeners.ready = nil
	c.listeners.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (c *Client) emitRefresh(tok Token) {
	c.listeners.mu.Lock()
	fns := append(([]func(Token))(nil), c.listeners.refresh...)
	c.listeners.mu.Unlock()

	for _, fn := range fns {
		fn(tok)
	}
}

func (c *Client) emitError(apiErr *APIError) {
	c.listeners.mu.Lock()
	fns := append(([]func(*APIError))(nil), c.listeners.errs...)
	c.listeners.mu.Unlock()

	for _, fn := range fns {
		fn(apiErr)
	}
}
