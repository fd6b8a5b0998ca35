// Package cache provides standardized cache key generation functions.
// Using consistent key naming helps avoid collisions and makes cache
// management easier. All keys follow the pattern: "prefix:identifier".
package cache

import "fmt"

// Key prefixes for different cache types.
const (
	UserPrefix      = "user:"
	AnalyticsPrefix = "analytics:"
)

// UserKey generates a cache key for a user profile by UID.
//
// Example: "user:fXk82hsP3mQ1"
func UserKey(uid string) string {
	return fmt.Sprintf("%s%s", UserPrefix, uid)
}

// AnalyticsKey generates a cache key for a user's analytics report for
// a given period ("week", "month", "year").
//
// Example: "analytics:fXk82hsP3mQ1:week"
func AnalyticsKey(uid, period string) string {
	return fmt.Sprintf("%s%s:%s", AnalyticsPrefix, uid, period)
}

// UserAnalyticsPattern returns a glob pattern matching every cached
// analytics report for a user. Used with DeletePattern when the user's
// tasks change, since any period may now be stale.
//
// Example: "analytics:fXk82hsP3mQ1:*"
func UserAnalyticsPattern(uid string) string {
	return fmt.Sprintf("%s%s:*", AnalyticsPrefix, uid)
}
