package sigenergy

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

const (
	operationTimeout = 10 * time.Second
	maxRetries       = 3
)

// endpointConn is one pooled Modbus/TCP client plus the lock that serializes
// every exchange on it. At most one exchange is in flight on an endpoint at
// any time (§5).
type endpointConn struct {
	mu        sync.Mutex
	handler   *modbus.TCPClientHandler
	client    modbus.Client
	connected bool
}

// Pool is a connection pool keyed by (host,port). It lazily dials on first
// use, serializes all exchanges per endpoint, and transparently reconnects
// after a communication error.
type Pool struct {
	mu    sync.Mutex
	conns map[Endpoint]*endpointConn
}

// NewPool returns an empty connection pool.
func NewPool() *Pool {
	return &Pool{conns: make(map[Endpoint]*endpointConn)}
}

func (p *Pool) get(ep Endpoint) *endpointConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[ep]
	if !ok {
		c = &endpointConn{}
		p.conns[ep] = c
	}
	return c
}

func (c *endpointConn) ensureConnected(ep Endpoint, unitID byte) error {
	if c.connected {
		c.handler.SlaveId = unitID
		return nil
	}
	handler := modbus.NewTCPClientHandler(net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port)))
	handler.Timeout = operationTimeout
	handler.SlaveId = unitID
	if err := handler.Connect(); err != nil {
		return err
	}
	c.handler = handler
	c.client = modbus.NewClient(handler)
	c.connected = true
	return nil
}

// exchange runs fn against the endpoint's client, holding the endpoint lock
// for the duration and retrying up to maxRetries times after any error.
// A failed attempt after retries are exhausted marks the endpoint
// disconnected so the next call reconnects.
func (p *Pool) exchange(ep Endpoint, unitID byte, fn func(modbus.Client) ([]byte, error)) ([]byte, error) {
	c := p.get(ep)
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.ensureConnected(ep, unitID); err != nil {
			lastErr = err
			c.connected = false
			continue
		}
		data, err := fn(c.client)
		if err == nil {
			return data, nil
		}
		lastErr = err
		c.connected = false
	}
	return nil, lastErr
}

// MarkDisconnected forces the next operation against ep to reconnect. Used
// after a write exhausts every fallback address (§4.4.2).
func (p *Pool) MarkDisconnected(ep Endpoint) {
	c := p.get(ep)
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

// CloseAll closes every pooled client. Called on coordinator shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		c.mu.Lock()
		if c.connected && c.handler != nil {
			c.handler.Close()
			c.connected = false
		}
		c.mu.Unlock()
	}
}
