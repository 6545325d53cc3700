package credit

// validStatuses is the storage contract: these exact strings are persisted
// and compared, always lowercase.
var validStatuses = map[Status]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusRejected: true,
	StatusActive:   true,
	StatusPaid:     true,
	StatusOverdue:  true,
	StatusLate:     true,
}

// IsValidStatus reports whether s is part of the status enumeration.
func IsValidStatus(s Status) bool {
	return validStatuses[s]
}

// IsTerminal reports whether no further lifecycle transitions are permitted
// from s. The administrative override bypasses this check.
func IsTerminal(s Status) bool {
	return s == StatusPaid || s == StatusRejected
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another through the normal (non-administrative) operations.
func CanTransition(from, to Status) bool {
	if !validStatuses[from] || !validStatuses[to] {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusRejected
	case StatusActive:
		return to == StatusPaid || to == StatusOverdue
	case StatusOverdue:
		return to == StatusPaid || to == StatusLate
	case StatusLate:
		return to == StatusPaid
	case StatusApproved:
		// Legacy state kept in the enumeration for stored data; treated like
		// active for payment purposes.
		return to == StatusPaid || to == StatusOverdue
	default:
		// paid, rejected
		return false
	}
}
