package api

import (
	"context"
	"time"

	"rivo-reminders/domain"
)

// Runner executes one reminder batch run.
type Runner interface {
	Run(ctx context.Context, now time.Time) (domain.Summary, error)
}

type runResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Details domain.Summary `json:"details"`
}

type errorResponse struct {
	Error string `json:"error"`
}
