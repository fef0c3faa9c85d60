package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hydroaid/hydroaid-backend/internal/logging"
	"github.com/hydroaid/hydroaid-backend/internal/metrics"
	"github.com/hydroaid/hydroaid-backend/internal/realtime/hub"
	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/hydroaid/hydroaid-backend/internal/records/repository"
)

// CreateDonationRequest is the write-path input for a donation.
type CreateDonationRequest struct {
	UserID        *string
	Amount        *float64
	PaymentMethod string
	ProjectID     string
	DepartmentID  string
	Anonymous     bool
}

// CreateIssueRequest is the write-path input for an issue.
type CreateIssueRequest struct {
	Title        string
	Description  string
	Category     string
	Priority     string
	Lat          *float64
	Lng          *float64
	ReportedBy   *string
	DepartmentID string
	Photos       []domain.Photo
}

// Coordinator validates, persists and then broadcasts new records.
// Persistence is authoritative; broadcast failures are logged only.
type Coordinator struct {
	store       repository.Store
	enricher    *Enricher
	broadcaster *hub.Broadcaster
	timeout     time.Duration
	now         func() time.Time
}

func NewCoordinator(store repository.Store, broadcaster *hub.Broadcaster, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Coordinator{
		store:       store,
		enricher:    NewEnricher(store),
		broadcaster: broadcaster,
		timeout:     timeout,
		now:         time.Now,
	}
}

// WithClock overrides the creation timestamp source.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

func (c *Coordinator) CreateDonation(ctx context.Context, req CreateDonationRequest) (*domain.Donation, error) {
	if req.Amount == nil {
		return nil, domain.Missing("amount")
	}
	if *req.Amount <= 0 {
		return nil, domain.Invalid("amount", "must be greater than zero")
	}
	method := domain.PaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		return nil, domain.Missing("paymentMethod")
	}
	if !method.Valid() {
		return nil, domain.Invalid("paymentMethod", "unsupported payment method")
	}

	d := &domain.Donation{
		ID:            uuid.New().String(),
		PayerRef:      actorRef(req.UserID),
		Amount:        *req.Amount,
		PaymentMethod: method,
		Status:        domain.DonationCompleted,
		ProjectRef:    strings.TrimSpace(req.ProjectID),
		DepartmentRef: strings.TrimSpace(req.DepartmentID),
		Anonymous:     req.Anonymous,
		CreatedAt:     c.now(),
	}

	if err := c.withTimeout(ctx, "insert_donation", func(ctx context.Context) error {
		return c.store.InsertDonation(ctx, d)
	}); err != nil {
		return nil, err
	}

	log := logging.NewLogger(ctx)
	out := []domain.Donation{*d}
	if err := c.withTimeout(ctx, "enrich_donation", func(ctx context.Context) error {
		return c.enricher.Donations(ctx, out)
	}); err != nil {
		log.Warnf("create_donation", "id=%s enrichment skipped: %v", d.ID, err)
		payer := resolve(nil, d.PayerRef, domain.AnonymousDonor)
		out[0].Payer = &payer
	}
	created := &out[0]

	c.broadcast(ctx, "create_donation", hub.DonationTargets(created.DepartmentRef), created)
	return created, nil
}

func (c *Coordinator) CreateIssue(ctx context.Context, req CreateIssueRequest) (*domain.Issue, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	departmentID := strings.TrimSpace(req.DepartmentID)

	switch {
	case title == "":
		return nil, domain.Missing("title")
	case description == "":
		return nil, domain.Missing("description")
	case strings.TrimSpace(req.Category) == "":
		return nil, domain.Missing("category")
	case req.Lat == nil:
		return nil, domain.Missing("location.lat")
	case req.Lng == nil:
		return nil, domain.Missing("location.lng")
	case departmentID == "":
		return nil, domain.Missing("departmentId")
	}

	category := domain.IssueCategory(strings.TrimSpace(req.Category))
	if !category.Valid() {
		return nil, domain.Invalid("category", "unknown category")
	}
	priority := domain.PriorityMedium
	if p := strings.TrimSpace(req.Priority); p != "" {
		priority = domain.IssuePriority(p)
		if !priority.Valid() {
			return nil, domain.Invalid("priority", "unknown priority")
		}
	}
	if *req.Lat < -90 || *req.Lat > 90 {
		return nil, domain.Invalid("location.lat", "out of range")
	}
	if *req.Lng < -180 || *req.Lng > 180 {
		return nil, domain.Invalid("location.lng", "out of range")
	}

	now := c.now()
	photos := make([]domain.Photo, 0, len(req.Photos))
	for _, p := range req.Photos {
		if strings.TrimSpace(p.URL) == "" {
			continue
		}
		if p.UploadedAt.IsZero() {
			p.UploadedAt = now
		}
		photos = append(photos, p)
	}

	i := &domain.Issue{
		ID:            uuid.New().String(),
		Title:         title,
		Description:   description,
		Category:      category,
		Priority:      priority,
		Status:        domain.IssueReported,
		Location:      domain.Location{Lat: *req.Lat, Lng: *req.Lng},
		ReporterRef:   actorRef(req.ReportedBy),
		DepartmentRef: departmentID,
		Photos:        photos,
		StatusUpdates: []domain.StatusUpdate{},
		CreatedAt:     now,
	}

	if err := c.withTimeout(ctx, "insert_issue", func(ctx context.Context) error {
		return c.store.InsertIssue(ctx, i)
	}); err != nil {
		return nil, err
	}

	log := logging.NewLogger(ctx)
	out := []domain.Issue{*i}
	if err := c.withTimeout(ctx, "enrich_issue", func(ctx context.Context) error {
		return c.enricher.Issues(ctx, out)
	}); err != nil {
		log.Warnf("create_issue", "id=%s enrichment skipped: %v", i.ID, err)
		reporter := resolve(nil, i.ReporterRef, domain.AnonymousReporter)
		out[0].Reporter = &reporter
	}
	created := &out[0]

	c.broadcast(ctx, "create_issue", hub.IssueTargets(created.DepartmentRef), created)
	return created, nil
}

func (c *Coordinator) broadcast(ctx context.Context, op string, targets []hub.Target, record any) {
	if c.broadcaster == nil {
		return
	}
	if err := c.broadcaster.Broadcast(ctx, targets, record); err != nil {
		log := logging.NewLogger(ctx)
		if onlyNoRecipients(err) {
			log.Infof(op, "broadcast had no listeners: %v", err)
			return
		}
		log.Warnf(op, "broadcast failed: %v", err)
	}
}

func onlyNoRecipients(err error) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return errors.Is(err, hub.ErrNoRecipients)
	}
	for _, e := range joined.Unwrap() {
		if !errors.Is(e, hub.ErrNoRecipients) {
			return false
		}
	}
	return true
}

func (c *Coordinator) withTimeout(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		metrics.StoreErrors.WithLabelValues(op).Inc()
		return domain.Unavailable(op, err)
	}
	return nil
}

func actorRef(ref *string) string {
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return domain.AnonymousActor
	}
	return strings.TrimSpace(*ref)
}
