package identity

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Purpose separates verification codes from password reset codes
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify_email"
	PurposeResetPassword Purpose = "reset_password"
)

// CodeStore holds short-lived one-time codes keyed by purpose and email
type CodeStore interface {
	Save(ctx context.Context, purpose Purpose, email, code string, ttl time.Duration) error
	Check(ctx context.Context, purpose Purpose, email, code string) (bool, error)
	Delete(ctx context.Context, purpose Purpose, email string) error
}

// GenerateCode returns a random six digit code
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func codesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RedisCodeStore keeps codes in Redis with a TTL
type RedisCodeStore struct {
	client *redis.Client
}

// NewRedisCodeStore creates a code store backed by client
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func codeKey(purpose Purpose, email string) string {
	return "auth:code:" + string(purpose) + ":" + email
}

// Save stores code, replacing any earlier code for the same purpose and email
func (s *RedisCodeStore) Save(ctx context.Context, purpose Purpose, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, codeKey(purpose, email), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}
	return nil
}

// Check reports whether code matches the stored, unexpired code
func (s *RedisCodeStore) Check(ctx context.Context, purpose Purpose, email, code string) (bool, error) {
	stored, err := s.client.Get(ctx, codeKey(purpose, email)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read code: %w", err)
	}
	return codesEqual(stored, code), nil
}

// Delete removes the stored code
func (s *RedisCodeStore) Delete(ctx context.Context, purpose Purpose, email string) error {
	if err := s.client.Del(ctx, codeKey(purpose, email)).Err(); err != nil {
		return fmt.Errorf("failed to delete code: %w", err)
	}
	return nil
}

type memoryCode struct {
	code      string
	expiresAt time.Time
}

// MemoryCodeStore is an in-process CodeStore
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]memoryCode
	now   func() time.Time
}

// NewMemoryCodeStore creates an empty in-memory code store
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]memoryCode), now: time.Now}
}

// Save stores code until ttl elapses
func (s *MemoryCodeStore) Save(_ context.Context, purpose Purpose, email, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[codeKey(purpose, email)] = memoryCode{code: code, expiresAt: s.now().Add(ttl)}
	return nil
}

// Check reports whether code matches the stored, unexpired code
func (s *MemoryCodeStore) Check(_ context.Context, purpose Purpose, email, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[codeKey(purpose, email)]
	if !ok || !s.now().Before(entry.expiresAt) {
		return false, nil
	}
	return codesEqual(entry.code, code), nil
}

// Delete removes the stored code
func (s *MemoryCodeStore) Delete(_ context.Context, purpose Purpose, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, codeKey(purpose, email))
	return nil
}

var (
	_ CodeStore = (*RedisCodeStore)(nil)
	_ CodeStore = (*MemoryCodeStore)(nil)
)
