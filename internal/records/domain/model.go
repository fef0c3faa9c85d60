package domain

import "time"

// Sentinel actor reference stored when a write arrives without a user.
const AnonymousActor = "anonymous"

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPayPal PaymentMethod = "paypal"
	PaymentUPI    PaymentMethod = "upi"
	PaymentWallet PaymentMethod = "wallet"
)

type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationFailed    DonationStatus = "failed"
)

type IssueCategory string

const (
	CategoryWaterQuality   IssueCategory = "water_quality"
	CategoryInfrastructure IssueCategory = "infrastructure"
	CategoryAccessibility  IssueCategory = "accessibility"
	CategoryMaintenance    IssueCategory = "maintenance"
	CategoryEmergency      IssueCategory = "emergency"
)

type IssuePriority string

const (
	PriorityLow      IssuePriority = "low"
	PriorityMedium   IssuePriority = "medium"
	PriorityHigh     IssuePriority = "high"
	PriorityCritical IssuePriority = "critical"
)

type IssueStatus string

const (
	IssueReported   IssueStatus = "reported"
	IssueAssigned   IssueStatus = "assigned"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
	IssueClosed     IssueStatus = "closed"
)

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectOnHold     ProjectStatus = "on_hold"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleDepartment Role = "department"
)

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Actor is the display projection of a User used for enrichment.
type Actor struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Donation is a single contribution towards a project.
type Donation struct {
	ID            string         `json:"_id"`
	PayerRef      string         `json:"-"`
	Payer         *Actor         `json:"userId,omitempty"`
	Amount        float64        `json:"amount"`
	PaymentMethod PaymentMethod  `json:"paymentMethod"`
	Status        DonationStatus `json:"status"`
	ProjectRef    string         `json:"projectId"`
	DepartmentRef string         `json:"departmentId,omitempty"`
	Anonymous     bool           `json:"anonymous"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type Photo struct {
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type StatusUpdate struct {
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ActorRef  string    `json:"userId,omitempty"`
}

// Issue is a field report filed against a department.
type Issue struct {
	ID            string         `json:"_id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Category      IssueCategory  `json:"category"`
	Priority      IssuePriority  `json:"priority"`
	Status        IssueStatus    `json:"status"`
	Location      Location       `json:"location"`
	ReporterRef   string         `json:"-"`
	Reporter      *Actor         `json:"reportedBy,omitempty"`
	AssigneeRef   string         `json:"assignedTo,omitempty"`
	DepartmentRef string         `json:"departmentId"`
	Photos        []Photo        `json:"photos"`
	StatusUpdates []StatusUpdate `json:"updates"`
	ResolvedAt    *time.Time     `json:"resolvedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type ProjectUpdate struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	ActorRef  string    `json:"userId,omitempty"`
}

// Project is read-only to this service.
type Project struct {
	ID             string          `json:"_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Location       Location        `json:"location"`
	Status         ProjectStatus   `json:"status"`
	Progress       int             `json:"progress"`
	DepartmentRef  string          `json:"departmentId"`
	EstimatedCost  float64         `json:"estimatedCost"`
	CurrentFunding float64         `json:"currentFunding"`
	TeamMembers    []string        `json:"teamMembers"`
	Updates        []ProjectUpdate `json:"updates"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type User struct {
	ID             string    `json:"_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	DepartmentName string    `json:"departmentName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Actor returns the enrichment projection of u.
func (u User) Actor() Actor {
	return Actor{ID: u.ID, Name: u.Name, Email: u.Email}
}
