package domain

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentPayPal, PaymentUPI, PaymentWallet:
		return true
	}
	return false
}

func (c IssueCategory) Valid() bool {
	switch c {
	case CategoryWaterQuality, CategoryInfrastructure, CategoryAccessibility, CategoryMaintenance, CategoryEmergency:
		return true
	}
	return false
}

func (p IssuePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleDepartment:
		return true
	}
	return false
}

// AnonymousDonor and AnonymousReporter are the display identities for the
// AnonymousActor sentinel.
var (
	AnonymousDonor    = Actor{ID: AnonymousActor, Name: "Anonymous Donor"}
	AnonymousReporter = Actor{ID: AnonymousActor, Name: "Anonymous Reporter"}
)
