package hub

import (
	"encoding/json"
	"sync"
)

// Event is one server-pushed message.
type Event struct {
	Room    string          `json:"room"`
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Conn is a live client connection held by this process.
type Conn struct {
	id           string
	role         string
	departmentID string

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn creates a connection with an outbound buffer of size buffer.
func NewConn(id, role, departmentID string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 1
	}
	return &Conn{
		id:           id,
		role:         role,
		departmentID: departmentID,
		events:       make(chan Event, buffer),
		done:         make(chan struct{}),
	}
}

func (c *Conn) ID() string           { return c.id }
func (c *Conn) Role() string         { return c.role }
func (c *Conn) DepartmentID() string { return c.departmentID }

// Events is drained by the transport writing to the client.
func (c *Conn) Events() <-chan Event { return c.events }

// Done is closed once the connection has been dropped.
func (c *Conn) Done() <-chan struct{} { return c.done }

// deliver never blocks; a full buffer or closed connection drops ev.
func (c *Conn) deliver(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
