package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hydroaid/hydroaid-backend/internal/metrics"
)

const AdminRoom = "admin-room"

// Event names pushed to clients.
const (
	EventNewDonation        = "new-donation"
	EventNewIssue           = "new-issue"
	EventDepartmentDonation = "department-donation"
	EventDepartmentIssue    = "department-issue"
	EventDashboardStats     = "dashboard-stats"

	EventProjectStatusChange = "project-status-change"
	EventProjectUpdate       = "project-update"
)

// Events a client may ask the gateway to relay.
const (
	RelayDonationMade   = "donation-made"
	RelayIssueReported  = "issue-reported"
	RelayProjectUpdated = "project-updated"
)

// DepartmentRoom returns the room key for a department.
func DepartmentRoom(departmentID string) string {
	return "department-" + departmentID
}

// Target is one (room, event) pair a record is published to.
type Target struct {
	Room  string
	Event string
}

// DonationTargets derives the rooms for a newly created donation.
func DonationTargets(departmentID string) []Target {
	return recordTargets(EventNewDonation, EventDepartmentDonation, departmentID)
}

// IssueTargets derives the rooms for a newly created issue.
func IssueTargets(departmentID string) []Target {
	return recordTargets(EventNewIssue, EventDepartmentIssue, departmentID)
}

// ProjectTargets derives the rooms for a project status change.
func ProjectTargets(departmentID string) []Target {
	return recordTargets(EventProjectStatusChange, EventProjectUpdate, departmentID)
}

// RelayTargets maps a client-sent event onto the rooms it fans out to.
func RelayTargets(clientEvent, departmentID string) ([]Target, bool) {
	switch clientEvent {
	case RelayDonationMade:
		return DonationTargets(departmentID), true
	case RelayIssueReported:
		return IssueTargets(departmentID), true
	case RelayProjectUpdated:
		return ProjectTargets(departmentID), true
	}
	return nil, false
}

func recordTargets(adminEvent, departmentEvent, departmentID string) []Target {
	targets := []Target{{Room: AdminRoom, Event: adminEvent}}
	if departmentID != "" {
		targets = append(targets, Target{Room: DepartmentRoom(departmentID), Event: departmentEvent})
	}
	return targets
}

// Broadcaster publishes created records to their derived rooms.
type Broadcaster struct {
	pub     Publisher
	timeout time.Duration
}

func NewBroadcaster(pub Publisher, timeout time.Duration) *Broadcaster {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Broadcaster{pub: pub, timeout: timeout}
}

// Broadcast encodes payload once and publishes it to each target. It keeps
// going after a failed target and returns every failure joined. The
// caller's cancellation is ignored so a departed client cannot abort it.
func (b *Broadcaster) Broadcast(ctx context.Context, targets []Target, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	var errs []error
	for _, t := range targets {
		if err := b.pub.Publish(ctx, t.Room, t.Event, data); err != nil {
			if !errors.Is(err, ErrNoRecipients) {
				metrics.BroadcastFailures.Inc()
			}
			errs = append(errs, fmt.Errorf("publish %s to %s: %w", t.Event, t.Room, err))
		}
	}
	return errors.Join(errs...)
}
