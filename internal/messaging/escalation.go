package messaging

// TargetRank resolves the rank an escalation is addressed to:
// exactly one rank up, clamped at the top. Escalations never skip
// levels; if the immediate superior seat is vacant, further propagation
// is the notification layer's problem, not the resolver's.
func TargetRank(senderRank int) int {
	if senderRank <= 1 {
		return 1
	}
	return senderRank - 1
}

// RequiresImmediate reports whether an escalation demands synchronous
// handling.
func RequiresImmediate(priority Priority) bool {
	return priority == PriorityUrgent
}
