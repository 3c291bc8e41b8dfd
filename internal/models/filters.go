package models

// Default pagination for proposal listings.
const (
	DefaultProposalPage  = 1
	DefaultProposalLimit = 8
)

// ProposalFilters is the option set of GET /proposals. The boolean filters
// are independent and combine: Sent/Received narrow by role, the status flags
// narrow by lifecycle state. All false means no narrowing.
type ProposalFilters struct {
	Page      int  `json:"page"`
	Limit     int  `json:"limit"`
	Sent      bool `json:"sent"`
	Received  bool `json:"received"`
	Accepted  bool `json:"accepted"`
	Rejected  bool `json:"rejected"`
	Cancelled bool `json:"cancelled"`
	Pending   bool `json:"pending"`
}

// Normalize applies the documented defaults.
func (f ProposalFilters) Normalize() ProposalFilters {
	if f.Page < 1 {
		f.Page = DefaultProposalPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultProposalLimit
	}
	return f
}

// Statuses returns the statuses selected by the flags, in a fixed order.
func (f ProposalFilters) Statuses() []Status {
	var statuses []Status
	if f.Pending {
		statuses = append(statuses, StatusPending)
	}
	if f.Accepted {
		statuses = append(statuses, StatusAccepted)
	}
	if f.Rejected {
		statuses = append(statuses, StatusRejected)
	}
	if f.Cancelled {
		statuses = append(statuses, StatusCancelled)
	}
	return statuses
}

// Canonical reports whether the filter set maps onto one of the unfiltered
// per-user views (all / sent / received on the first default-size page).
// Anything else is cached under a filter-hash key.
func (f ProposalFilters) Canonical() bool {
	return f.Page == DefaultProposalPage &&
		f.Limit == DefaultProposalLimit &&
		len(f.Statuses()) == 0
}
