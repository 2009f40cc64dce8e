// Package audit keeps a trail of notable user actions.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/langhour/tracker/core"
)

// Log is one audit trail line.
type Log struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type QueryFilter struct {
	UserID string    `query:"user_id"`
	Since  time.Time `query:"-"`
	Limit  int       `query:"limit"`
}

func (qf *QueryFilter) Match(l Log) bool {
	if qf.UserID != "" && l.UserID != qf.UserID {
		return false
	}
	if !qf.Since.IsZero() && l.CreatedAt.Before(qf.Since) {
		return false
	}
	return true
}

type (
	Repository interface {
		CreateLog(ctx context.Context, l Log) (Log, error)
		// QueryLogs returns matching logs, newest first.
		QueryLogs(ctx context.Context, filter QueryFilter) ([]Log, error)
	}

	Service interface {
		// Record stores a log line. Failures are reported to the app logger, never to the caller.
		Record(ctx context.Context, userID, format string, args ...interface{})
		Query(ctx context.Context, filter QueryFilter) ([]Log, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (svc *service) Record(ctx context.Context, userID, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > 255 {
		msg = msg[:255]
	}
	l := Log{ID: uuid.NewString(), UserID: userID, Message: msg, CreatedAt: time.Now().UTC()}
	if _, err := svc.repo.CreateLog(ctx, l); err != nil {
		svc.logger.Error("recording audit log", err, map[string]interface{}{"user_id": userID, "message": msg})
	}
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Log, error) {
	return svc.repo.QueryLogs(ctx, filter)
}
