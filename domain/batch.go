package domain

// Batch collects one user's due tasks for a single run, split by tier. It
// lives only for the duration of that run.
type Batch struct {
	UserID string

	byTier map[string][]Task
}

func newBatch(userID string) *Batch {
	return &Batch{UserID: userID, byTier: map[string][]Task{}}
}

// Tasks returns the tier's sublist in finder order.
func (b *Batch) Tasks(tier Tier) []Task {
	return b.byTier[tier.Code]
}

func (b *Batch) add(tier Tier, t Task) {
	b.byTier[tier.Code] = append(b.byTier[tier.Code], t)
}

// Drop discards the tier's sublist, e.g. when the user has not opted in.
func (b *Batch) Drop(tier Tier) {
	delete(b.byTier, tier.Code)
}

// GroupByUser folds both candidate lists into one batch per recipient so a
// user receives at most one message per tier per run. Within a tier the
// finder's order is preserved.
func GroupByUser(dueTomorrow, dueWeekAhead []Task) map[string]*Batch {
	batches := map[string]*Batch{}
	group := func(tier Tier, tasks []Task) {
		for _, t := range tasks {
			b, ok := batches[t.UserID]
			if !ok {
				b = newBatch(t.UserID)
				batches[t.UserID] = b
			}
			b.add(tier, t)
		}
	}
	group(TierTomorrow, dueTomorrow)
	group(TierWeekAhead, dueWeekAhead)
	return batches
}
