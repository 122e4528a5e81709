package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stubSink struct {
	data  [][]byte
	attrs []map[string]string
	err   error
}

func (s *stubSink) Publish(_ context.Context, data []byte, attrs map[string]string) error {
	s.data = append(s.data, data)
	s.attrs = append(s.attrs, attrs)
	return s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel})
}

func TestPublishSendsEventWithAttributes(t *testing.T) {
	sink := &stubSink{}
	pub, err := NewPublisher(sink, testLogger())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	storeID := uuid.New()
	userID := uuid.New()
	pub.Publish(context.Background(), Event{
		Type:    EventBidApproved,
		StoreID: storeID,
		UserID:  userID,
		Message: "your bid was approved",
	})

	if len(sink.data) != 1 {
		t.Fatalf("published %d events, want 1", len(sink.data))
	}
	if got := sink.attrs[0]["event_type"]; got != EventBidApproved {
		t.Fatalf("event_type attr = %q", got)
	}
	if got := sink.attrs[0]["store_id"]; got != storeID.String() {
		t.Fatalf("store_id attr = %q", got)
	}

	var evt Event
	if err := json.Unmarshal(sink.data[0], &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.UserID != userID {
		t.Fatalf("user id = %s, want %s", evt.UserID, userID)
	}
	if evt.OccurredAt.IsZero() {
		t.Fatal("occurred_at was not stamped")
	}
}

func TestPublishSwallowsSinkErrors(t *testing.T) {
	sink := &stubSink{err: errors.New("broker down")}
	pub, err := NewPublisher(sink, testLogger())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	// Must not panic or surface the error.
	pub.Publish(context.Background(), Event{Type: EventAuctionWon, UserID: uuid.New()})
}

func TestNewPublisherRequiresSink(t *testing.T) {
	if _, err := NewPublisher(nil, testLogger()); err == nil {
		t.Fatal("expected error for nil sink")
	}
}
