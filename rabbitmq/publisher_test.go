package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Aditya-GrowAI/civicvoice3/config"
	"github.com/Aditya-GrowAI/civicvoice3/models"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu        sync.Mutex
	published []published
	err       error
	closed    bool
}

func (c *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublishIssueCreated(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisherWithChannel(ch, "civicvoice")
	issue := models.NewIssue("garbage", 1, 2, "bins", "user_1", "uploads/x.jpg")

	require.NoError(t, p.PublishIssueCreated(context.Background(), issue))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "civicvoice", got.exchange)
	assert.Equal(t, IssueCreatedRoutingKey, got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var event models.IssueCreated
	require.NoError(t, json.Unmarshal(got.msg.Body, &event))
	assert.Equal(t, issue.ID, event.Issue.ID)
	assert.Equal(t, EventSource, event.Source)
	assert.False(t, event.Published.IsZero())
}

func TestPublishError(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := newPublisherWithChannel(ch, "civicvoice")

	err := p.PublishIssueCreated(context.Background(), models.NewIssue(models.IssueTypeManual, 0, 0, "", "", ""))
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestPublishCancelledContext(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisherWithChannel(ch, "civicvoice")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.PublishIssueCreated(ctx, models.NewIssue(models.IssueTypeManual, 0, 0, "", "", ""))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ch.published)
}

func TestPublishAfterClose(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisherWithChannel(ch, "civicvoice")

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.Error(t, p.PublishIssueCreated(context.Background(), models.NewIssue(models.IssueTypeManual, 0, 0, "", "", "")))
}

func TestConcurrentPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisherWithChannel(ch, "civicvoice")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.PublishIssueCreated(context.Background(), models.NewIssue(models.IssueTypeManual, 0, 0, "", "", ""))
		}()
	}
	wg.Wait()

	assert.Len(t, ch.published, 20)
}

func TestNewEventPublisherDisabled(t *testing.T) {
	p := NewEventPublisher(config.RabbitMQConfig{})
	assert.IsType(t, Noop{}, p)
	assert.NoError(t, p.PublishIssueCreated(context.Background(), models.NewIssue(models.IssueTypeManual, 0, 0, "", "", "")))
	assert.NoError(t, p.Close())
}
