package queue_test

import (
	"testing"
	"time"

	"github.com/yeisme/snapvault/pkg/queue"
)

func TestWatermillMessageRoundTrip(t *testing.T) {
	payload := queue.ShareCreatedPayload{
		OTP:       "1234",
		Kind:      queue.ShareKindFile,
		ObjectKey: "1234/report.pdf",
		Size:      2048,
		ExpiresAt: time.Now().UTC().Add(5 * time.Minute).Truncate(time.Millisecond),
	}

	msg, err := queue.NewWatermillMessage(queue.TopicShareCreated, payload, queue.WithProducer("snapvault"))
	if err != nil {
		t.Fatalf("NewWatermillMessage: %v", err)
	}

	if msg.UUID == "" {
		t.Error("message UUID should be set")
	}

	if got := msg.Metadata.Get("topic"); got != queue.TopicShareCreated {
		t.Errorf("topic metadata = %q, want %q", got, queue.TopicShareCreated)
	}

	if got := msg.Metadata.Get("producer"); got != "snapvault" {
		t.Errorf("producer metadata = %q, want snapvault", got)
	}

	env, err := queue.ParseShareCreated(msg)
	if err != nil {
		t.Fatalf("ParseShareCreated: %v", err)
	}

	if env.Header.Topic != queue.TopicShareCreated {
		t.Errorf("header topic = %q, want %q", env.Header.Topic, queue.TopicShareCreated)
	}

	if env.Header.OccurredAt.Location() != time.UTC {
		t.Errorf("occurred_at should be UTC, got %v", env.Header.OccurredAt.Location())
	}

	if env.Payload.OTP != payload.OTP || env.Payload.ObjectKey != payload.ObjectKey {
		t.Errorf("payload mismatch: got %+v, want %+v", env.Payload, payload)
	}

	if !env.Payload.ExpiresAt.Equal(payload.ExpiresAt) {
		t.Errorf("expires_at = %v, want %v", env.Payload.ExpiresAt, payload.ExpiresAt)
	}
}

func TestShareTopics(t *testing.T) {
	topics := queue.ShareTopics
	if len(topics) == 0 {
		t.Fatal("ShareTopics should not be empty")
	}

	seen := make(map[string]bool, len(topics))
	for _, topic := range topics {
		if seen[topic] {
			t.Errorf("duplicate topic %q", topic)
		}

		seen[topic] = true
	}

	if !seen[queue.TopicShareCreated] || !seen[queue.TopicShareDeleted] {
		t.Errorf("expected lifecycle topics in %v", topics)
	}
}
