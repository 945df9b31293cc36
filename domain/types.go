package domain

import "context"

// TaskStore is the persistence boundary for maintenance tasks.
type TaskStore interface {
	// FindDueTasks returns non-completed tasks due exactly on date whose
	// notified flag for tier is still false.
	FindDueTasks(ctx context.Context, tier Tier, date string) ([]Task, error)
	// MarkNotified flips the tier's notified flag for one task. Called only
	// after the send for that task's batch was confirmed.
	MarkNotified(ctx context.Context, userID, taskID string, tier Tier) error
}

// PreferenceStore reads per-user notification preferences.
type PreferenceStore interface {
	// FetchOptIn reports whether the user opted into week-ahead reminders.
	// found is false when no preference record exists.
	FetchOptIn(ctx context.Context, userID string) (optIn, found bool, err error)
}

// IdentityResolver maps a user ID to a deliverable address. It fails closed:
// an error or empty address means the user's whole batch is skipped.
type IdentityResolver interface {
	ResolveEmail(ctx context.Context, userID string) (string, error)
}

// Sender delivers a composed message. A nil error means confirmed dispatch.
type Sender interface {
	Send(ctx context.Context, address string, msg Message) error
}

// DispatchGuard fences a user/tier batch against overlapping invocations.
type DispatchGuard interface {
	// Acquire claims the batch for this run. It returns false when another
	// in-flight run already claimed it.
	Acquire(ctx context.Context, date, userID string, tier Tier) (bool, error)
	// Release frees a claim after a failed send so the batch stays retryable.
	Release(ctx context.Context, date, userID string, tier Tier) error
}

// AnomalyRecorder captures tasks that were part of a confirmed send but could
// not be marked notified, for operator reconciliation.
type AnomalyRecorder interface {
	RecordUnmarked(ctx context.Context, userID, taskID string, tier Tier) error
}
