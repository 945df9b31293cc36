package domain

// TierCounts splits a counter by reminder tier.
type TierCounts struct {
	Tomorrow  int `json:"tomorrow"`
	SevenDays int `json:"sevenDays"`
}

func (c *TierCounts) add(tier Tier, n int) {
	switch tier.Code {
	case TierTomorrow.Code:
		c.Tomorrow += n
	case TierWeekAhead.Code:
		c.SevenDays += n
	}
}

func (c *TierCounts) merge(other TierCounts) {
	c.Tomorrow += other.Tomorrow
	c.SevenDays += other.SevenDays
}

// Total sums the counter across tiers.
func (c TierCounts) Total() int {
	return c.Tomorrow + c.SevenDays
}

// Summary reports one run's outcome to the invoker.
type Summary struct {
	TasksDueTomorrow int        `json:"tasksDueTomorrow"`
	TasksDue7Days    int        `json:"tasksDue7Days"`
	EmailsSent       TierCounts `json:"emailsSent"`
	TasksUpdated     TierCounts `json:"tasksUpdated"`
	UsersProcessed   int        `json:"usersProcessed"`
}
