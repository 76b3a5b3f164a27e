package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MaxFeedEntries caps the per-user notification history; older entries are dropped
const MaxFeedEntries = 200

// Feed is the per-user notification history with an unread counter
type Feed interface {
	// Append adds an entry and increments the unread counter
	Append(ctx context.Context, userID uuid.UUID, entry models.Notification) error
	// List returns entries oldest first
	List(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	Unread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID uuid.UUID) error
	// Clear removes every entry and resets the unread counter
	Clear(ctx context.Context, userID uuid.UUID) error
}

// RedisFeed stores each user's feed as a JSON list plus a counter
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed creates a feed backed by Redis lists
func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

func feedKey(userID uuid.UUID) string {
	return "notifications:feed:" + userID.String()
}

func unreadKey(userID uuid.UUID) string {
	return "notifications:unread:" + userID.String()
}

// Append pushes entry onto the end of the user's feed, trims it and bumps the unread counter
func (f *RedisFeed) Append(ctx context.Context, userID uuid.UUID, entry models.Notification) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, feedKey(userID), payload)
		pipe.LTrim(ctx, feedKey(userID), -MaxFeedEntries, -1)
		pipe.Incr(ctx, unreadKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

// List returns the user's entries, oldest first
func (f *RedisFeed) List(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	raw, err := f.client.LRange(ctx, feedKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	entries := make([]models.Notification, 0, len(raw))
	for _, item := range raw {
		var entry models.Notification
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Unread returns the user's unread counter
func (f *RedisFeed) Unread(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := f.client.Get(ctx, unreadKey(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return count, nil
}

// MarkRead resets the unread counter
func (f *RedisFeed) MarkRead(ctx context.Context, userID uuid.UUID) error {
	if err := f.client.Del(ctx, unreadKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}
	return nil
}

// Clear deletes the feed and its counter
func (f *RedisFeed) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := f.client.Del(ctx, feedKey(userID), unreadKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}

// MemoryFeed is an in-process Feed
type MemoryFeed struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]models.Notification
	unread  map[uuid.UUID]int
}

// NewMemoryFeed creates an empty in-memory feed
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		entries: make(map[uuid.UUID][]models.Notification),
		unread:  make(map[uuid.UUID]int),
	}
}

// Append adds entry to the end of the user's feed
func (f *MemoryFeed) Append(_ context.Context, userID uuid.UUID, entry models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := append(f.entries[userID], entry)
	if len(entries) > MaxFeedEntries {
		entries = entries[len(entries)-MaxFeedEntries:]
	}
	f.entries[userID] = entries
	f.unread[userID]++
	return nil
}

// List returns a copy of the user's entries, oldest first
func (f *MemoryFeed) List(_ context.Context, userID uuid.UUID) ([]models.Notification, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Notification, len(f.entries[userID]))
	copy(out, f.entries[userID])
	return out, nil
}

// Unread returns the user's unread count
func (f *MemoryFeed) Unread(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.unread[userID], nil
}

// MarkRead resets the unread count
func (f *MemoryFeed) MarkRead(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.unread, userID)
	return nil
}

// Clear drops the user's entries
func (f *MemoryFeed) Clear(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, userID)
	delete(f.unread, userID)
	return nil
}

var (
	_ Feed = (*RedisFeed)(nil)
	_ Feed = (*MemoryFeed)(nil)
)
