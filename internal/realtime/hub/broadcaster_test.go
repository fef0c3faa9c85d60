package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	Room    string
	Event   string
	Payload string
}

// recordingPublisher captures every publish call.
type recordingPublisher struct {
	mu    sync.Mutex
	calls []published
	fail  map[string]error
}

func (p *recordingPublisher) Publish(ctx context.Context, room, event string, payload json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, published{Room: room, Event: event, Payload: string(payload)})
	if err := p.fail[room]; err != nil {
		return err
	}
	return ctx.Err()
}

func TestIssueTargets(t *testing.T) {
	assert.Equal(t, []Target{
		{Room: "admin-room", Event: "new-issue"},
		{Room: "department-dept-7", Event: "department-issue"},
	}, IssueTargets("dept-7"))

	assert.Equal(t, []Target{{Room: "admin-room", Event: "new-issue"}}, IssueTargets(""))
}

func TestDonationTargets(t *testing.T) {
	assert.Equal(t, []Target{{Room: "admin-room", Event: "new-donation"}}, DonationTargets(""))
	assert.Equal(t, []Target{
		{Room: "admin-room", Event: "new-donation"},
		{Room: "department-d1", Event: "department-donation"},
	}, DonationTargets("d1"))
}

func TestBroadcaster_IdenticalPayloadPerTarget(t *testing.T) {
	pub := &recordingPublisher{}
	b := NewBroadcaster(pub, time.Second)

	err := b.Broadcast(context.Background(), IssueTargets("dept-7"), map[string]string{"_id": "i1", "title": "leak"})
	require.NoError(t, err)

	require.Len(t, pub.calls, 2)
	assert.Equal(t, "admin-room", pub.calls[0].Room)
	assert.Equal(t, "new-issue", pub.calls[0].Event)
	assert.Equal(t, "department-dept-7", pub.calls[1].Room)
	assert.Equal(t, "department-issue", pub.calls[1].Event)
	assert.Equal(t, pub.calls[0].Payload, pub.calls[1].Payload)
}

func TestBroadcaster_ContinuesAfterFailure(t *testing.T) {
	pub := &recordingPublisher{fail: map[string]error{"admin-room": errors.New("bus down")}}
	b := NewBroadcaster(pub, time.Second)

	err := b.Broadcast(context.Background(), IssueTargets("dept-1"), map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus down")
	assert.Len(t, pub.calls, 2)
}

func TestBroadcaster_IgnoresCallerCancellation(t *testing.T) {
	pub := &recordingPublisher{}
	b := NewBroadcaster(pub, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, b.Broadcast(ctx, DonationTargets(""), map[string]int{"amount": 50}))
	assert.Len(t, pub.calls, 1)
}

func TestBroadcaster_ThroughRegistry(t *testing.T) {
	r := NewRegistry()
	admin := newTestConn(r, "admin")
	dept := newTestConn(r, "dept")
	require.NoError(t, r.Join(admin, AdminRoom))
	require.NoError(t, r.Join(dept, DepartmentRoom("dept-7")))

	b := NewBroadcaster(r, time.Second)
	require.NoError(t, b.Broadcast(context.Background(), IssueTargets("dept-7"), map[string]string{"_id": "i9"}))

	a := receive(t, admin)
	d := receive(t, dept)
	assert.Equal(t, EventNewIssue, a.Name)
	assert.Equal(t, EventDepartmentIssue, d.Name)
	assert.Equal(t, string(a.Payload), string(d.Payload))
}

func TestRelayTargets(t *testing.T) {
	targets, ok := RelayTargets(RelayProjectUpdated, "dept-2")
	require.True(t, ok)
	assert.Equal(t, []Target{
		{Room: "admin-room", Event: "project-status-change"},
		{Room: "department-dept-2", Event: "project-update"},
	}, targets)

	targets, ok = RelayTargets(RelayDonationMade, "")
	require.True(t, ok)
	assert.Equal(t, DonationTargets(""), targets)

	targets, ok = RelayTargets(RelayIssueReported, "d1")
	require.True(t, ok)
	assert.Equal(t, IssueTargets("d1"), targets)

	_, ok = RelayTargets("new-issue", "d1")
	assert.False(t, ok)
}

func TestBroadcaster_ProjectUpdateThroughRegistry(t *testing.T) {
	r := NewRegistry()
	admin := newTestConn(r, "admin")
	dept := newTestConn(r, "dept")
	other := newTestConn(r, "other")
	require.NoError(t, r.Join(admin, AdminRoom))
	require.NoError(t, r.Join(dept, DepartmentRoom("dept-2")))
	require.NoError(t, r.Join(other, DepartmentRoom("dept-3")))

	b := NewBroadcaster(r, time.Second)
	require.NoError(t, b.Broadcast(context.Background(), ProjectTargets("dept-2"), map[string]string{"_id": "p1", "status": "completed"}))

	a := receive(t, admin)
	d := receive(t, dept)
	assert.Equal(t, EventProjectStatusChange, a.Name)
	assert.Equal(t, EventProjectUpdate, d.Name)
	assert.JSONEq(t, `{"_id":"p1","status":"completed"}`, string(d.Payload))

	select {
	case ev := <-other.Events():
		t.Fatalf("unexpected event for other department: %s", ev.Name)
	default:
	}
}
