package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/hydroaid/hydroaid-backend/internal/metrics"
)

var (
	ErrUnknownConn  = errors.New("connection not registered")
	ErrNoRecipients = errors.New("room has no connected recipients")
)

// Publisher fans an event out to every member of a room. Implementations
// must not block on any individual recipient.
type Publisher interface {
	Publish(ctx context.Context, room, event string, payload json.RawMessage) error
}

// Registry maps room keys to the connections held by this process.
// The lock only guards the membership tables; it is never held while
// a recipient is being written to.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	rooms  map[string]map[*Conn]struct{}
	joined map[*Conn]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Conn),
		rooms:  make(map[string]map[*Conn]struct{}),
		joined: make(map[*Conn]map[string]struct{}),
	}
}

// Register makes c addressable by id. Registering twice is a no-op.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.id]; ok {
		return
	}
	r.conns[c.id] = c
	r.joined[c] = make(map[string]struct{})
	metrics.Connections.Inc()
}

// Lookup returns the registered connection with the given id.
func (r *Registry) Lookup(id string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// Join adds c to room. Joining a room c is already in is a no-op.
func (r *Registry) Join(c *Conn, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.joined[c]
	if !ok {
		return ErrUnknownConn
	}
	members := r.rooms[room]
	if members == nil {
		members = make(map[*Conn]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}
	rooms[room] = struct{}{}
	return nil
}

// Leave removes c from room. Leaving a room c is not in is a no-op.
func (r *Registry) Leave(c *Conn, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.joined[c]
	if !ok {
		return ErrUnknownConn
	}
	delete(rooms, room)
	r.removeMember(room, c)
	return nil
}

// Disconnect drops c from every room it joined and closes it.
func (r *Registry) Disconnect(c *Conn) {
	r.mu.Lock()
	rooms, ok := r.joined[c]
	if ok {
		for room := range rooms {
			r.removeMember(room, c)
		}
		delete(r.joined, c)
		delete(r.conns, c.id)
	}
	r.mu.Unlock()

	if ok {
		metrics.Connections.Dec()
	}
	c.close()
}

func (r *Registry) removeMember(room string, c *Conn) {
	members := r.rooms[room]
	if members == nil {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Rooms lists the rooms c is joined to, sorted.
func (r *Registry) Rooms(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.joined[c]))
	for room := range r.joined[c] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// IsMember reports whether c is currently joined to room.
func (r *Registry) IsMember(c *Conn, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][c]
	return ok
}

// MemberCount returns the number of connections joined to room.
func (r *Registry) MemberCount(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Deliver hands ev to every current member of ev.Room.
func (r *Registry) Deliver(ev Event) (delivered, dropped int) {
	r.mu.RLock()
	members := make([]*Conn, 0, len(r.rooms[ev.Room]))
	for c := range r.rooms[ev.Room] {
		members = append(members, c)
	}
	r.mu.RUnlock()

	for _, c := range members {
		if c.deliver(ev) {
			delivered++
		} else {
			dropped++
		}
	}
	metrics.Deliveries.Add(float64(delivered))
	metrics.DroppedDeliveries.Add(float64(dropped))
	return delivered, dropped
}

// Publish implements Publisher for single-process deployments.
func (r *Registry) Publish(_ context.Context, room, event string, payload json.RawMessage) error {
	metrics.Publishes.WithLabelValues(event).Inc()
	delivered, dropped := r.Deliver(Event{Room: room, Name: event, Payload: payload})
	if delivered == 0 {
		if dropped > 0 {
			return &DeliveryError{Room: room, Dropped: dropped}
		}
		return ErrNoRecipients
	}
	return nil
}

// DeliveryError reports a publish where every recipient was unreachable.
type DeliveryError struct {
	Room    string
	Dropped int
}

func (e *DeliveryError) Error() string {
	return "all deliveries dropped for room " + e.Room
}
