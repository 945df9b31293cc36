package domain

import "time"

// Tier identifies one reminder window. Both tiers run through the same
// pipeline; only the lookahead, the opt-in gate and the notified-flag column
// differ.
type Tier struct {
	// Code keys summary counters and guard entries.
	Code string
	// OffsetDays is the lookahead from the run date to the target due date.
	OffsetDays int
	// RequiresOptIn gates the tier on the user's notification preference.
	RequiresOptIn bool
	// FlagColumn names the per-task notified flag for this tier.
	FlagColumn string
}

var (
	// TierTomorrow is the 1-day lookahead. Always sent when applicable.
	TierTomorrow = Tier{Code: "tomorrow", OffsetDays: 1, FlagColumn: "Tier1Notified"}
	// TierWeekAhead is the 7-day lookahead, sent only to opted-in users.
	TierWeekAhead = Tier{Code: "sevenDays", OffsetDays: 7, RequiresOptIn: true, FlagColumn: "Tier7Notified"}
)

// Tiers lists the reminder tiers in dispatch order.
var Tiers = [...]Tier{TierTomorrow, TierWeekAhead}

// TargetDate returns the calendar date (UTC) whose tasks fall inside this
// tier's window relative to now. The match is exact: a task already overdue
// when the window opens is not picked up by a later run.
func (t Tier) TargetDate(now time.Time) string {
	return now.UTC().AddDate(0, 0, t.OffsetDays).Format(DateLayout)
}
