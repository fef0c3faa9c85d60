package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hydroaid/hydroaid-backend/internal/auth"
	"github.com/hydroaid/hydroaid-backend/internal/logging"
	"github.com/hydroaid/hydroaid-backend/internal/realtime/hub"
	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"golang.org/x/time/rate"
)

var ErrRoomNotPermitted = errors.New("room not permitted for this connection")

type Options struct {
	Buffer     int
	KeepAlive  time.Duration
	ActionRate rate.Limit
	Burst      int
}

// Gateway accepts SSE connections and registers them with the room registry.
type Gateway struct {
	registry    *hub.Registry
	broadcaster *hub.Broadcaster
	opt         Options

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the gateway-side state of one open stream.
type session struct {
	owner   string
	conn    *hub.Conn
	limiter *rate.Limiter
}

// NewGateway builds the gateway. broadcaster carries client relays and may
// be nil, in which case relays are refused.
func NewGateway(registry *hub.Registry, broadcaster *hub.Broadcaster, opt Options) *Gateway {
	if opt.Buffer <= 0 {
		opt.Buffer = 64
	}
	if opt.KeepAlive <= 0 {
		opt.KeepAlive = 15 * time.Second
	}
	if opt.ActionRate <= 0 {
		opt.ActionRate = 5
	}
	if opt.Burst <= 0 {
		opt.Burst = 10
	}
	return &Gateway{
		registry:    registry,
		broadcaster: broadcaster,
		opt:         opt,
		sessions:    make(map[string]*session),
	}
}

// CanJoin reports whether a connection with the given role and department
// may subscribe to room.
func CanJoin(role, departmentID, room string) bool {
	if role == string(domain.RoleAdmin) {
		prefix := hub.DepartmentRoom("")
		return room == hub.AdminRoom || (strings.HasPrefix(room, prefix) && len(room) > len(prefix))
	}
	if role == string(domain.RoleDepartment) && departmentID != "" {
		return room == hub.DepartmentRoom(departmentID)
	}
	return false
}

// defaultRooms are joined as soon as the stream opens.
func defaultRooms(id auth.Identity) []string {
	switch id.Role {
	case domain.RoleAdmin:
		return []string{hub.AdminRoom}
	case domain.RoleDepartment:
		return []string{hub.DepartmentRoom(id.DepartmentID)}
	}
	return nil
}

// Stream handles GET /realtime/stream
func (g *Gateway) Stream(c *gin.Context) {
	id, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	log := logging.NewLogger(ctx)

	conn := hub.NewConn(uuid.NewString(), string(id.Role), id.DepartmentID, g.opt.Buffer)
	g.registry.Register(conn)
	g.track(&session{
		owner:   id.UserID,
		conn:    conn,
		limiter: rate.NewLimiter(g.opt.ActionRate, g.opt.Burst),
	})
	defer func() {
		g.untrack(conn.ID())
		g.registry.Disconnect(conn)
		log.Infof("stream_closed", "connection_id=%s", conn.ID())
	}()

	for _, room := range defaultRooms(id) {
		if err := g.registry.Join(conn, room); err != nil {
			log.Error("stream_join", err)
		}
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	hello, _ := json.Marshal(gin.H{"connectionId": conn.ID(), "rooms": g.registry.Rooms(conn)})
	fmt.Fprintf(c.Writer, "event: connected\ndata: %s\n\n", hello)
	flusher.Flush()
	log.Infof("stream_opened", "connection_id=%s user_id=%s role=%s", conn.ID(), id.UserID, id.Role)

	keepAlive := time.NewTicker(g.opt.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(c.Writer, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-conn.Events():
			if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Name, ev.Payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type joinBody struct {
	Room string `json:"room"`
}

// JoinRoom handles POST /realtime/connections/:id/rooms
func (g *Gateway) JoinRoom(c *gin.Context) {
	var body joinBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Room) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room is required", "field": "room"})
		return
	}
	room := strings.TrimSpace(body.Room)

	s, ok := g.session(c)
	if !ok {
		return
	}
	if !CanJoin(s.conn.Role(), s.conn.DepartmentID(), room) {
		c.JSON(http.StatusForbidden, gin.H{"error": ErrRoomNotPermitted.Error(), "room": room})
		return
	}
	g.roomAction(c, s, "join_room", room, g.registry.Join)
}

// LeaveRoom handles DELETE /realtime/connections/:id/rooms/:room. Leaving
// a room the connection is not in succeeds.
func (g *Gateway) LeaveRoom(c *gin.Context) {
	s, ok := g.session(c)
	if !ok {
		return
	}
	g.roomAction(c, s, "leave_room", c.Param("room"), g.registry.Leave)
}

func (g *Gateway) roomAction(c *gin.Context, s *session, op, room string, action func(*hub.Conn, string) error) {
	if err := action(s.conn, room); err != nil {
		if errors.Is(err, hub.ErrUnknownConn) {
			c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
			return
		}
		logging.NewLogger(c.Request.Context()).Error(op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"connectionId": s.conn.ID(), "rooms": g.registry.Rooms(s.conn)})
}

type relayBody struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Relay handles POST /realtime/connections/:id/events. It fans a
// client-sent donation-made, issue-reported or project-updated payload out
// to the admin room and, when the payload names one, the department room.
func (g *Gateway) Relay(c *gin.Context) {
	var body relayBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	var fields struct {
		DepartmentID string `json:"departmentId"`
	}
	if len(body.Payload) == 0 || body.Payload[0] != '{' || json.Unmarshal(body.Payload, &fields) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be an object", "field": "payload"})
		return
	}
	departmentID := strings.TrimSpace(fields.DepartmentID)

	targets, ok := hub.RelayTargets(strings.TrimSpace(body.Event), departmentID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported event", "field": "event"})
		return
	}

	s, ok := g.session(c)
	if !ok {
		return
	}
	if !CanRelay(s.conn.Role(), s.conn.DepartmentID(), departmentID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "relay not permitted for this connection"})
		return
	}
	if g.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "relay unavailable"})
		return
	}

	log := logging.NewLogger(c.Request.Context())
	if err := g.broadcaster.Broadcast(c.Request.Context(), targets, body.Payload); err != nil {
		log.Infof("relay_event", "connection_id=%s event=%s partial delivery: %v", s.conn.ID(), body.Event, err)
	}

	rooms := make([]string, 0, len(targets))
	for _, t := range targets {
		rooms = append(rooms, t.Room)
	}
	c.JSON(http.StatusAccepted, gin.H{"event": body.Event, "rooms": rooms})
}

// CanRelay reports whether a connection may relay an event scoped to
// departmentID. Admins relay anything; department connections only their
// own department's events.
func CanRelay(role, ownDepartment, departmentID string) bool {
	switch role {
	case string(domain.RoleAdmin):
		return true
	case string(domain.RoleDepartment):
		return ownDepartment != "" && departmentID == ownDepartment
	}
	return false
}

// session resolves the caller's connection and spends one action token.
// On failure the response has already been written.
func (g *Gateway) session(c *gin.Context) (*session, bool) {
	id, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return nil, false
	}

	s, ok := g.lookup(c.Param("id"))
	if !ok || s.owner != id.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
		return nil, false
	}
	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many room actions"})
		return nil, false
	}
	return s, true
}

func (g *Gateway) track(s *session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.conn.ID()] = s
}

func (g *Gateway) untrack(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, connID)
}

func (g *Gateway) lookup(connID string) (*session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[connID]
	return s, ok
}
