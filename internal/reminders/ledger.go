package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Ledger records which reminder keys have already been delivered
type Ledger interface {
	HasFired(ctx context.Context, key Key) (bool, error)
	// MarkFired is idempotent
	MarkFired(ctx context.Context, key Key) error
	// Forget removes every key recorded for a task
	Forget(ctx context.Context, taskID uuid.UUID) error
	List(ctx context.Context, taskID uuid.UUID) ([]Key, error)
	// Claim reserves key for one dispatch for at most ttl. It reports false
	// while another evaluation, possibly in another process, holds the claim.
	Claim(ctx context.Context, key Key, ttl time.Duration) (bool, error)
	// Release drops a claim taken with Claim
	Release(ctx context.Context, key Key) error
}

var ledgerKinds = []Kind{KindCustom, KindDueTomorrow, KindOverdue}

const (
	ledgerKeyPrefix = "reminders:fired:"
	claimKeyPrefix  = "reminders:claim:"
)

func claimKey(key Key) string {
	return claimKeyPrefix + string(key.Kind) + ":" + key.Member()
}

// RedisLedger keeps one Redis set per reminder kind
type RedisLedger struct {
	client *redis.Client
}

// NewRedisLedger creates a ledger backed by Redis sets
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func ledgerSetKey(kind Kind) string {
	switch kind {
	case KindCustom:
		return ledgerKeyPrefix + "custom"
	case KindDueTomorrow:
		return ledgerKeyPrefix + "default"
	default:
		return ledgerKeyPrefix + "overdue"
	}
}

// HasFired reports whether key is in the ledger
func (l *RedisLedger) HasFired(ctx context.Context, key Key) (bool, error) {
	fired, err := l.client.SIsMember(ctx, ledgerSetKey(key.Kind), key.Member()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check reminder ledger: %w", err)
	}
	return fired, nil
}

// MarkFired adds key to the ledger
func (l *RedisLedger) MarkFired(ctx context.Context, key Key) error {
	if err := l.client.SAdd(ctx, ledgerSetKey(key.Kind), key.Member()).Err(); err != nil {
		return fmt.Errorf("failed to mark reminder fired: %w", err)
	}
	return nil
}

// Forget removes all keys of a task from every set
func (l *RedisLedger) Forget(ctx context.Context, taskID uuid.UUID) error {
	customMembers, err := l.customMembers(ctx, taskID)
	if err != nil {
		return err
	}

	_, err = l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(customMembers) > 0 {
			members := make([]any, len(customMembers))
			for i, m := range customMembers {
				members[i] = m
			}
			pipe.SRem(ctx, ledgerSetKey(KindCustom), members...)
		}
		pipe.SRem(ctx, ledgerSetKey(KindDueTomorrow), taskID.String())
		pipe.SRem(ctx, ledgerSetKey(KindOverdue), taskID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to forget reminders: %w", err)
	}
	return nil
}

// List returns the keys recorded for a task
func (l *RedisLedger) List(ctx context.Context, taskID uuid.UUID) ([]Key, error) {
	var keys []Key

	customMembers, err := l.customMembers(ctx, taskID)
	if err != nil {
		return nil, err
	}
	for _, member := range customMembers {
		key, err := parseMember(KindCustom, member)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].HoursBefore > keys[j].HoursBefore })

	for _, kind := range []Kind{KindDueTomorrow, KindOverdue} {
		fired, err := l.HasFired(ctx, Key{TaskID: taskID, Kind: kind})
		if err != nil {
			return nil, err
		}
		if fired {
			keys = append(keys, Key{TaskID: taskID, Kind: kind})
		}
	}
	return keys, nil
}

// Claim sets a short-lived claim key with SET NX
func (l *RedisLedger) Claim(ctx context.Context, key Key, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, claimKey(key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	return ok, nil
}

// Release deletes the claim key
func (l *RedisLedger) Release(ctx context.Context, key Key) error {
	if err := l.client.Del(ctx, claimKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release reminder claim: %w", err)
	}
	return nil
}

func (l *RedisLedger) customMembers(ctx context.Context, taskID uuid.UUID) ([]string, error) {
	var members []string
	iter := l.client.SScan(ctx, ledgerSetKey(KindCustom), 0, taskID.String()+":*", 100).Iterator()
	for iter.Next(ctx) {
		members = append(members, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan reminder ledger: %w", err)
	}
	return members, nil
}

// MemoryLedger is an in-process Ledger
type MemoryLedger struct {
	mu     sync.RWMutex
	fired  map[Kind]map[string]struct{}
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	fired := make(map[Kind]map[string]struct{}, len(ledgerKinds))
	for _, kind := range ledgerKinds {
		fired[kind] = make(map[string]struct{})
	}
	return &MemoryLedger{fired: fired, claims: make(map[string]time.Time), now: time.Now}
}

// HasFired reports whether key is in the ledger
func (l *MemoryLedger) HasFired(_ context.Context, key Key) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.fired[key.Kind][key.Member()]
	return ok, nil
}

// MarkFired adds key to the ledger
func (l *MemoryLedger) MarkFired(_ context.Context, key Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	set, ok := l.fired[key.Kind]
	if !ok {
		return fmt.Errorf("unknown reminder kind %q", key.Kind)
	}
	set[key.Member()] = struct{}{}
	return nil
}

// Forget removes all keys of a task
func (l *MemoryLedger) Forget(_ context.Context, taskID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for kind, set := range l.fired {
		for member := range set {
			key, err := parseMember(kind, member)
			if err == nil && key.TaskID == taskID {
				delete(set, member)
			}
		}
	}
	return nil
}

// List returns the keys recorded for a task
func (l *MemoryLedger) List(_ context.Context, taskID uuid.UUID) ([]Key, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var keys []Key
	for _, kind := range ledgerKinds {
		var kindKeys []Key
		for member := range l.fired[kind] {
			key, err := parseMember(kind, member)
			if err != nil {
				return nil, err
			}
			if key.TaskID == taskID {
				kindKeys = append(kindKeys, key)
			}
		}
		sort.Slice(kindKeys, func(i, j int) bool { return kindKeys[i].HoursBefore > kindKeys[j].HoursBefore })
		keys = append(keys, kindKeys...)
	}
	return keys, nil
}

// Claim takes the claim unless an unexpired one exists
func (l *MemoryLedger) Claim(_ context.Context, key Key, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if expires, ok := l.claims[claimKey(key)]; ok && now.Before(expires) {
		return false, nil
	}
	l.claims[claimKey(key)] = now.Add(ttl)
	return true, nil
}

// Release drops the claim
func (l *MemoryLedger) Release(_ context.Context, key Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, claimKey(key))
	return nil
}

var (
	_ Ledger = (*RedisLedger)(nil)
	_ Ledger = (*MemoryLedger)(nil)
)
