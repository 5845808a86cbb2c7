package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// IssueTypeManual marks issues submitted without a photo.
	IssueTypeManual = "Manual"

	// StatusPending is the status every issue is created with. Nothing in
	// this service changes it afterwards.
	StatusPending = "Pending"
)

// Issue represents a civic report as stored and returned by the API.
// The store's own key (_id, seq) is never part of this struct.
type Issue struct {
	ID          string    `json:"id" bson:"id"`
	Type        string    `json:"type" bson:"type"`
	Lat         float64   `json:"lat" bson:"lat"`
	Lng         float64   `json:"lng" bson:"lng"`
	Status      string    `json:"status" bson:"status"`
	Image       *string   `json:"image" bson:"image"`
	Description *string   `json:"description" bson:"description"`
	UserID      *string   `json:"user_id" bson:"user_id"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// NewIssue builds a pending issue with a fresh id and creation time.
// Empty optional strings are stored as null.
func NewIssue(issueType string, lat, lng float64, description, userID, image string) *Issue {
	return &Issue{
		ID:          uuid.New().String(),
		Type:        issueType,
		Lat:         lat,
		Lng:         lng,
		Status:      StatusPending,
		Image:       optional(image),
		Description: optional(description),
		UserID:      optional(userID),
		CreatedAt:   time.Now().UTC(),
	}
}

// IssueCreated is the event published after an issue has been stored.
type IssueCreated struct {
	Issue     Issue     `json:"issue"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences an optional field, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
