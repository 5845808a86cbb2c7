package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestIsRateLimited(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api 429", genai.APIError{Code: 429, Message: "quota"}, true},
		{"resource exhausted status", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"wrapped api 429", fmt.Errorf("call: %w", genai.APIError{Code: 429}), true},
		{"api 500", genai.APIError{Code: 500, Status: "INTERNAL"}, false},
		{"api 400", genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}, false},
		{"message 429", errors.New("googleapi: Error 429: too many requests"), true},
		{"message exhausted", errors.New("RESOURCE_EXHAUSTED: quota"), true},
		{"plain", errors.New("connection reset by peer"), false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRateLimited(tc.err))
		})
	}
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "pothole"}}},
		}},
	}
	assert.Equal(t, "pothole", responseText(resp))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "gemini-2.0-flash")
	assert.Error(t, err)
}
