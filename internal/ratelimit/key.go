package ratelimit

import "strings"

// KeyForPayment builds a limiter key scoping payment attempts per user.
// Returns empty when no limit applies.
func KeyForPayment(user string, limit int) string {
	user = strings.TrimSpace(user)
	if user == "" || limit <= 0 {
		return ""
	}
	return "pay:u:" + strings.ToLower(user)
}
