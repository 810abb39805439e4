package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CandidateLocker serializes select-and-write for one candidate set across
// service instances. The returned release func is always non-nil.
type CandidateLocker interface {
	Lock(ctx context.Context, candidates []uuid.UUID) func(context.Context)
}

// NoopLocker is used when no Redis is configured; prefetch=1 is then the only guard.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, []uuid.UUID) func(context.Context) {
	return func(context.Context) {}
}

// LockClient is satisfied by *redislock.Client.
type LockClient interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// RedisCandidateLocker takes a short redislock lock keyed by the candidate set.
// Failing to obtain it is logged and processing continues unlocked.
type RedisCandidateLocker struct {
	client LockClient
	prefix string
	ttl    time.Duration
	log    *logrus.Entry
}

func NewRedisCandidateLocker(client LockClient, prefix string, ttl time.Duration, logger logrus.FieldLogger) *RedisCandidateLocker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCandidateLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    logger.WithField("component", "candidate_lock"),
	}
}

func (l *RedisCandidateLocker) Lock(ctx context.Context, candidates []uuid.UUID) func(context.Context) {
	noop := func(context.Context) {}
	if len(candidates) == 0 {
		return noop
	}

	key := candidateLockKey(l.prefix, candidates)
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.log.WithField("lock_key", key).Warn("could not obtain candidate lock; proceeding without lock")
		return noop
	}
	if err != nil {
		l.log.WithField("lock_key", key).WithError(err).Warn("error obtaining candidate lock; proceeding without lock")
		return noop
	}

	return func(releaseCtx context.Context) {
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.WithField("lock_key", key).WithError(err).Warn("failed to release candidate lock")
		}
	}
}

// candidateLockKey is independent of candidate order.
func candidateLockKey(prefix string, candidates []uuid.UUID) string {
	ids := make([]string, 0, len(candidates))
	for _, id := range candidates {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, ",")))
	return prefix + ":" + hex.EncodeToString(sum[:])
}
