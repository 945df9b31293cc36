package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"rivo-reminders/domain"
)

// Storage provides access to the task, settings and user tables, plus an
// optional queue for reconciliation anomalies.
type Storage struct {
	taskTable     *aztables.Client
	settingsTable *aztables.Client
	usersTable    *aztables.Client
	anomalyQueue  *azqueue.QueueClient
	logger        *log.Logger
}

// New creates a Storage instance from the given connection string. An empty
// anomalyQueue name disables anomaly recording (log-only mode).
func New(connStr, tasksTable, settingsTable, usersTable, anomalyQueue string, logger *log.Logger) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		taskTable:     svc.NewClient(tasksTable),
		settingsTable: svc.NewClient(settingsTable),
		usersTable:    svc.NewClient(usersTable),
		logger:        logger,
	}
	if anomalyQueue != "" {
		queueClientOptions := azqueue.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries:    5,
					TryTimeout:    time.Minute * 5,
					RetryDelay:    time.Second * 1,
					MaxRetryDelay: time.Second * 60,
					StatusCodes:   []int{408, 429, 500, 502, 503, 504},
				},
			},
		}
		aq, err := azqueue.NewQueueClientFromConnectionString(connStr, anomalyQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		s.anomalyQueue = aq
	}
	return s, nil
}

type taskEntity struct {
	aztables.Entity
	Title           string `json:"Title"`
	Description     string `json:"Description"`
	PropertyID      string `json:"PropertyId"`
	PropertyAddress string `json:"PropertyAddress"`
	DueDate         string `json:"DueDate"`
	Done            bool   `json:"Done"`
	Tier1Notified   bool   `json:"Tier1Notified"`
	Tier7Notified   bool   `json:"Tier7Notified"`
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	if ent.PartitionKey == "" || ent.RowKey == "" || ent.DueDate == "" {
		return domain.Task{}, fmt.Errorf("task entity missing keys or due date")
	}
	return domain.Task{
		ID:              ent.RowKey,
		UserID:          ent.PartitionKey,
		PropertyID:      ent.PropertyID,
		PropertyAddress: ent.PropertyAddress,
		Title:           ent.Title,
		Description:     ent.Description,
		DueDate:         ent.DueDate,
		Done:            ent.Done,
		Tier1Notified:   ent.Tier1Notified,
		Tier7Notified:   ent.Tier7Notified,
	}, nil
}

func dueTasksFilter(tier domain.Tier, date string) string {
	return fmt.Sprintf("DueDate eq '%s' and Done eq false and %s eq false", date, tier.FlagColumn)
}

// FindDueTasks retrieves non-completed tasks due exactly on date whose
// notified flag for the tier is still false. Malformed rows are logged and
// skipped rather than failing the run.
func (s *Storage) FindDueTasks(ctx context.Context, tier domain.Tier, date string) ([]domain.Task, error) {
	filter := dueTasksFilter(tier, date)
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			task, err := decodeTaskEntity(e)
			if err != nil {
				s.logger.WithFields(log.Fields{"tier": tier.Code, "error": err.Error()}).
					Warn("skipping malformed task row")
				continue
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// MarkNotified flips the tier's notified flag on a single task row via a
// merge update, leaving every other column untouched.
func (s *Storage) MarkNotified(ctx context.Context, userID, taskID string, tier domain.Tier) error {
	ent := map[string]any{
		"PartitionKey":  userID,
		"RowKey":        taskID,
		tier.FlagColumn: true,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	})
	return err
}

func decodeSettingsEntity(data []byte) (bool, error) {
	var raw struct {
		Notify7Days bool `json:"Notify7Days"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return false, err
	}
	return raw.Notify7Days, nil
}

// FetchOptIn reads the user's week-ahead opt-in. A missing settings record is
// reported as found=false, not an error.
func (s *Storage) FetchOptIn(ctx context.Context, userID string) (bool, bool, error) {
	ent, err := s.settingsTable.GetEntity(ctx, userID, userID, nil)
	if err != nil {
		if isNotFound(err) {
			return false, false, nil
		}
		return false, false, err
	}
	optIn, err := decodeSettingsEntity(ent.Value)
	if err != nil {
		return false, false, err
	}
	return optIn, true, nil
}

func decodeUserEntity(data []byte) (string, error) {
	var raw struct {
		Email string `json:"Email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", err
	}
	if raw.Email == "" {
		return "", errors.New("user record has no email")
	}
	return raw.Email, nil
}

// ResolveEmail returns the user's deliverable address. It fails closed: a
// missing user record or empty address is an error and the caller skips the
// user.
func (s *Storage) ResolveEmail(ctx context.Context, userID string) (string, error) {
	ent, err := s.usersTable.GetEntity(ctx, userID, userID, nil)
	if err != nil {
		return "", err
	}
	return decodeUserEntity(ent.Value)
}

type anomalyMessage struct {
	UserID     string `json:"userId"`
	TaskID     string `json:"taskId"`
	Tier       string `json:"tier"`
	FlagColumn string `json:"flagColumn"`
	RecordedAt string `json:"recordedAt"`
}

// RecordUnmarked enqueues a reconciliation record for a task that was part of
// a confirmed send but could not be marked notified. A nil queue makes this a
// no-op.
func (s *Storage) RecordUnmarked(ctx context.Context, userID, taskID string, tier domain.Tier) error {
	if s.anomalyQueue == nil {
		return nil
	}
	msg := anomalyMessage{
		UserID:     userID,
		TaskID:     taskID,
		Tier:       tier.Code,
		FlagColumn: tier.FlagColumn,
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = s.anomalyQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
