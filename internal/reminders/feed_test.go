package reminders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
)

func exerciseFeed(t *testing.T, feed Feed) {
	t.Helper()
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()

	for i := 0; i < 3; i++ {
		entry := models.Notification{
			ID:        uuid.New(),
			Message:   fmt.Sprintf("message %d", i),
			Timestamp: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
			Type:      models.NotificationTypeReminder,
		}
		if err := feed.Append(ctx, userID, entry); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	if err := feed.Append(ctx, other, models.Notification{ID: uuid.New(), Message: "other"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	entries, err := feed.List(ctx, userID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "message 0" || entries[2].Message != "message 2" {
		t.Errorf("Expected entries oldest first, got %q..%q", entries[0].Message, entries[2].Message)
	}

	unread, err := feed.Unread(ctx, userID)
	if err != nil || unread != 3 {
		t.Errorf("Expected unread 3, got %d (err=%v)", unread, err)
	}

	if err := feed.MarkRead(ctx, userID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	unread, err = feed.Unread(ctx, userID)
	if err != nil || unread != 0 {
		t.Errorf("Expected unread 0 after MarkRead, got %d (err=%v)", unread, err)
	}
	entries, _ = feed.List(ctx, userID)
	if len(entries) != 3 {
		t.Errorf("Expected MarkRead to keep entries, got %d", len(entries))
	}

	if err := feed.Clear(ctx, userID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	entries, err = feed.List(ctx, userID)
	if err != nil || len(entries) != 0 {
		t.Errorf("Expected empty feed after Clear, got %d (err=%v)", len(entries), err)
	}

	otherEntries, _ := feed.List(ctx, other)
	if len(otherEntries) != 1 {
		t.Errorf("Expected other user's feed untouched, got %d", len(otherEntries))
	}
}

func TestMemoryFeed(t *testing.T) {
	t.Parallel()
	exerciseFeed(t, NewMemoryFeed())
}

func TestMemoryFeed_Cap(t *testing.T) {
	t.Parallel()

	feed := NewMemoryFeed()
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < MaxFeedEntries+5; i++ {
		if err := feed.Append(ctx, userID, models.Notification{ID: uuid.New(), Message: fmt.Sprintf("%d", i)}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	entries, _ := feed.List(ctx, userID)
	if len(entries) != MaxFeedEntries {
		t.Fatalf("Expected %d entries, got %d", MaxFeedEntries, len(entries))
	}
	if entries[0].Message != "5" {
		t.Errorf("Expected oldest entries trimmed, first is %q", entries[0].Message)
	}
	unread, _ := feed.Unread(ctx, userID)
	if unread != MaxFeedEntries+5 {
		t.Errorf("Expected unread %d, got %d", MaxFeedEntries+5, unread)
	}
}

func TestRedisFeed(t *testing.T) {
	client := newTestRedisClient(t)
	exerciseFeed(t, NewRedisFeed(client))
}
