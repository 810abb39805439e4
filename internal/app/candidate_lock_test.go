package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubLockClient struct {
	keys []string
	ttl  time.Duration
	err  error
}

func (s *stubLockClient) Obtain(_ context.Context, key string, ttl time.Duration, _ *redislock.Options) (*redislock.Lock, error) {
	s.keys = append(s.keys, key)
	s.ttl = ttl
	return nil, s.err
}

func TestCandidateLockKey_IgnoresOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	first := candidateLockKey("assignment:candidates", []uuid.UUID{a, b, c})
	second := candidateLockKey("assignment:candidates", []uuid.UUID{c, a, b})
	other := candidateLockKey("assignment:candidates", []uuid.UUID{a, b})

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.True(t, strings.HasPrefix(first, "assignment:candidates:"))
}

func TestRedisCandidateLocker_ProceedsWhenNotObtained(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"lock held elsewhere", redislock.ErrNotObtained},
		{"redis unavailable", errors.New("dial tcp: connection refused")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubLockClient{err: tc.err}
			logger, hook := newTestLogger()
			locker := NewRedisCandidateLocker(client, "assignment:candidates", 30*time.Second, logger)

			release := locker.Lock(context.Background(), []uuid.UUID{uuid.New()})

			assert.NotNil(t, release)
			release(context.Background())
			assert.Len(t, client.keys, 1)
			assert.Equal(t, 30*time.Second, client.ttl)
			if assert.NotNil(t, hook.LastEntry()) {
				assert.Contains(t, hook.LastEntry().Message, "proceeding without lock")
			}
		})
	}
}

func TestRedisCandidateLocker_SkipsEmptyCandidateSet(t *testing.T) {
	client := &stubLockClient{}
	locker := NewRedisCandidateLocker(client, "p", time.Second, nil)

	locker.Lock(context.Background(), nil)(context.Background())

	assert.Empty(t, client.keys)
}
