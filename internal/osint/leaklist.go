package osint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

const defaultLeakFetchTimeout = 30 * time.Second

// LeakPost is one entry of a ransomwatch-style posts.json feed.
type LeakPost struct {
	Title      string `json:"post_title"`
	Group      string `json:"group_name"`
	Discovered string `json:"discovered"`
}

type LeakListConfig struct {
	URL          string
	SnapshotPath string
	TTL          time.Duration
	FetchTimeout time.Duration
}

// LeakList is the shared, periodically refreshed list of leak-site posts.
// Every outbound fetch goes through the throttle. The last good download is
// kept as a zstd snapshot on disk and served when the source is unreachable.
type LeakList struct {
	cfg      LeakListConfig
	getter   HTTPGetter
	throttle *Throttle
	clock    Clock
	metrics  *Metrics
	log      logrus.FieldLogger

	// sem serialises refreshes; mu guards posts and fetchedAt so Held never
	// waits on a fetch in flight.
	sem       chan struct{}
	mu        sync.RWMutex
	posts     []LeakPost
	fetchedAt time.Time
	loaded    bool
}

func NewLeakList(cfg LeakListConfig, getter HTTPGetter, throttle *Throttle, clock Clock, metrics *Metrics, log logrus.FieldLogger) *LeakList {
	if clock == nil {
		clock = SystemClock
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultLeakFetchTimeout
	}
	return &LeakList{
		cfg:      cfg,
		getter:   getter,
		throttle: throttle,
		clock:    clock,
		metrics:  metrics,
		log:      log.WithField("component", "leak_list"),
		sem:      make(chan struct{}, 1),
	}
}

// Posts returns the list, refreshing it when older than the TTL. fresh is
// false when the refresh failed and an older copy (or nothing) is returned.
func (l *LeakList) Posts(ctx context.Context) (posts []LeakPost, fetchedAt time.Time, fresh bool) {
	if err := l.lock(ctx); err != nil {
		posts, fetchedAt = l.Held()
		return posts, fetchedAt, false
	}
	defer l.unlock()

	l.loadSnapshotLocked()
	if l.posts != nil && l.clock.Now().Sub(l.fetchedAt) < l.cfg.TTL {
		return l.posts, l.fetchedAt, true
	}
	if err := l.fetchLocked(ctx); err != nil {
		l.log.WithError(err).Warn("leak list refresh failed, using previous copy")
		return l.posts, l.fetchedAt, false
	}
	return l.posts, l.fetchedAt, true
}

// Refresh downloads the list regardless of age. It surfaces throttle
// rejections so a forced scan can report them.
func (l *LeakList) Refresh(ctx context.Context) error {
	if err := l.lock(ctx); err != nil {
		return err
	}
	defer l.unlock()

	l.loadSnapshotLocked()
	return l.fetchLocked(ctx)
}

// Held returns the copy currently in memory without fetching or waiting.
func (l *LeakList) Held() ([]LeakPost, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.posts, l.fetchedAt
}

func (l *LeakList) store(posts []LeakPost, fetchedAt time.Time) {
	l.mu.Lock()
	l.posts = posts
	l.fetchedAt = fetchedAt
	l.mu.Unlock()
}

func (l *LeakList) lock(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *LeakList) unlock() { <-l.sem }

func (l *LeakList) fetchLocked(ctx context.Context) error {
	if l.throttle != nil {
		if err := l.throttle.Acquire(ctx); err != nil {
			return err
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, l.cfg.FetchTimeout)
	defer cancel()

	body, err := l.getter.Get(fetchCtx, l.cfg.URL)
	if err != nil {
		l.metrics.LeakFetches.WithLabelValues("error").Inc()
		return &ProviderError{Provider: ProviderLeak, Target: l.cfg.URL, Err: err}
	}
	var posts []LeakPost
	if err := json.Unmarshal(body, &posts); err != nil {
		l.metrics.LeakFetches.WithLabelValues("error").Inc()
		return &ProviderError{Provider: ProviderLeak, Target: l.cfg.URL, Err: fmt.Errorf("decode posts: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if posts == nil {
		posts = []LeakPost{}
	}

	l.metrics.LeakFetches.WithLabelValues("ok").Inc()
	l.store(posts, l.clock.Now())
	l.log.WithField("posts", len(posts)).Info("leak list refreshed")

	if l.cfg.SnapshotPath != "" {
		if err := writeSnapshot(l.cfg.SnapshotPath, body); err != nil {
			l.log.WithError(err).Warn("failed to write leak list snapshot")
		}
	}
	return nil
}

// loadSnapshotLocked seeds the in-memory list from disk once per process.
func (l *LeakList) loadSnapshotLocked() {
	if l.loaded {
		return
	}
	l.loaded = true
	if l.cfg.SnapshotPath == "" {
		return
	}

	data, modTime, err := readSnapshot(l.cfg.SnapshotPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.log.WithError(err).Warn("failed to read leak list snapshot")
		}
		return
	}
	var posts []LeakPost
	if err := json.Unmarshal(data, &posts); err != nil {
		l.log.WithError(err).Warn("leak list snapshot is corrupt, ignoring")
		return
	}
	if posts == nil {
		posts = []LeakPost{}
	}
	l.store(posts, modTime)
	l.log.WithFields(logrus.Fields{"posts": len(posts), "fetched_at": modTime}).Info("loaded leak list snapshot")
}

func writeSnapshot(path string, data []byte) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	compressed := enc.EncodeAll(data, nil)
	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readSnapshot(path string) ([]byte, time.Time, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer dec.Close()

	data, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decompress %s: %w", path, err)
	}
	return data, info.ModTime(), nil
}
