//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "signup/pkg/domain"
	audit "signup/pkg/platform/audit"
	"signup/pkg/testutil/containers"
)

func TestStore_AppendProducesKeyedRecord(t *testing.T) {
	broker := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "signup.audit"
	producer, err := NewClient([]string{broker.SeedBroker}, topic)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, EnsureTopic(ctx, producer, topic, 1, 1))
	require.NoError(t, EnsureTopic(ctx, producer, topic, 1, 1), "second call tolerates an existing topic")

	userID := id.NewUserID()
	store := New(producer, topic)
	require.NoError(t, store.Append(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UserID:    userID,
		Action:    string(audit.EventRegistrationSucceeded),
		Email:     "a***@example.com",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.SeedBroker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, userID.String(), string(records[0].Key))
	var got map[string]string
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, "registration_succeeded", got["action"])
	assert.Equal(t, "compliance", got["category"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["timestamp"])
}
