package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/gymunity/feed/internal/embedding"
)

const embedLockKey = "feedd:embed:lock"

// Scheduler drives the article embedding job on a cron-like schedule. A
// redis lock keeps concurrent replicas from embedding the same batch.
type Scheduler struct {
	Indexer   *embedding.Indexer
	Rdb       *redis.Client
	Schedule  string
	BatchSize int
	Stop      chan struct{}
	Logger    *log.Logger

	lastRun *time.Time
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	if s.Indexer == nil {
		return
	}
	if !isDue(s.Schedule, s.lastRun) {
		return
	}
	ctx := context.Background()

	// distributed lock to avoid duplicate embedding runs
	if s.Rdb != nil {
		ok, _ := s.Rdb.SetNX(ctx, embedLockKey, "1", 10*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, embedLockKey)
	}

	now := time.Now()
	s.lastRun = &now
	n, err := s.Indexer.Run(ctx, s.BatchSize)
	if err != nil {
		s.Logger.Printf("embedding run failed after %d articles: %v", n, err)
		return
	}
	if n > 0 {
		s.Logger.Printf("embedding run complete: %d articles", n)
	}
}

// isDue determines if a job with cronSpec should run now based on last run
// time. Supports "@daily", "@hourly", and standard 5-field cron expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "", "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat as @daily if invalid
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
