package domain

import (
	"context"
	"sync"
)

type fakeStore struct {
	mu      sync.Mutex
	tasks   []Task
	findErr map[string]error // keyed by tier code
	markErr map[string]error // keyed by task ID
	marked  []markCall
}

type markCall struct {
	userID string
	taskID string
	tier   string
}

func (f *fakeStore) FindDueTasks(ctx context.Context, tier Tier, date string) ([]Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.findErr[tier.Code]; err != nil {
		return nil, err
	}
	out := []Task{}
	for _, t := range f.tasks {
		if t.Done || t.DueDate != date {
			continue
		}
		if tier.Code == TierTomorrow.Code && t.Tier1Notified {
			continue
		}
		if tier.Code == TierWeekAhead.Code && t.Tier7Notified {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) MarkNotified(ctx context.Context, userID, taskID string, tier Tier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.markErr[taskID]; err != nil {
		return err
	}
	for i := range f.tasks {
		if f.tasks[i].ID != taskID {
			continue
		}
		switch tier.Code {
		case TierTomorrow.Code:
			f.tasks[i].Tier1Notified = true
		case TierWeekAhead.Code:
			f.tasks[i].Tier7Notified = true
		}
	}
	f.marked = append(f.marked, markCall{userID: userID, taskID: taskID, tier: tier.Code})
	return nil
}

func (f *fakeStore) task(id string) Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t
		}
	}
	return Task{}
}

type fakePrefs struct {
	optIn map[string]bool // present means a record exists
	err   error
}

func (f *fakePrefs) FetchOptIn(ctx context.Context, userID string) (bool, bool, error) {
	if f.err != nil {
		return false, false, f.err
	}
	v, ok := f.optIn[userID]
	return v, ok, nil
}

type fakeIdentities struct {
	emails map[string]string
	err    map[string]error
}

func (f *fakeIdentities) ResolveEmail(ctx context.Context, userID string) (string, error) {
	if err := f.err[userID]; err != nil {
		return "", err
	}
	return f.emails[userID], nil
}

type sentMessage struct {
	address string
	msg     Message
}

type fakeSender struct {
	mu      sync.Mutex
	failFor map[string]error // keyed by address; "*" fails every send
	sent    []sentMessage
}

func (f *fakeSender) Send(ctx context.Context, address string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor["*"]; err != nil {
		return err
	}
	if err := f.failFor[address]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{address: address, msg: msg})
	return nil
}

func (f *fakeSender) sends() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeGuard struct {
	mu       sync.Mutex
	denied   map[string]bool // keyed by userID:tierCode
	err      error
	acquired []string
	released []string
}

func guardKey(userID string, tier Tier) string {
	return userID + ":" + tier.Code
}

func (f *fakeGuard) Acquire(ctx context.Context, date, userID string, tier Tier) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.denied[guardKey(userID, tier)] {
		return false, nil
	}
	f.acquired = append(f.acquired, guardKey(userID, tier))
	return true, nil
}

func (f *fakeGuard) Release(ctx context.Context, date, userID string, tier Tier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, guardKey(userID, tier))
	return nil
}

type fakeAnomalies struct {
	mu       sync.Mutex
	recorded []markCall
}

func (f *fakeAnomalies) RecordUnmarked(ctx context.Context, userID, taskID string, tier Tier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, markCall{userID: userID, taskID: taskID, tier: tier.Code})
	return nil
}
