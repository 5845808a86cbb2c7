package database

import (
	"context"
	"errors"

	"github.com/Aditya-GrowAI/civicvoice3/models"
)

// MaxListLimit caps every listing.
const MaxListLimit = 100

// ErrStorageUnavailable is returned when no store connection exists or the
// store cannot be reached.
var ErrStorageUnavailable = errors.New("database not connected")

// IssueStore inserts and lists issues. Issues are never updated or deleted.
type IssueStore interface {
	Insert(ctx context.Context, issue *models.Issue) (string, error)
	ListRecent(ctx context.Context, limit int) ([]models.Issue, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// clampLimit bounds a requested listing size to 1..MaxListLimit.
func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// Disconnected is the store used when no connection could be configured.
// Every operation fails with ErrStorageUnavailable.
type Disconnected struct {
	Reason string
}

func (d Disconnected) Insert(ctx context.Context, issue *models.Issue) (string, error) {
	return "", ErrStorageUnavailable
}

func (d Disconnected) ListRecent(ctx context.Context, limit int) ([]models.Issue, error) {
	return nil, ErrStorageUnavailable
}

func (d Disconnected) Ping(ctx context.Context) error {
	return ErrStorageUnavailable
}

func (d Disconnected) Close(ctx context.Context) error {
	return nil
}
