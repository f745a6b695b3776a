package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/swimcoach/internal/models"
	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
)

const (
	instructorDirectoryKey = "directory:instructors"
	courseDirectoryKey     = "directory:courses"
	directoryKeyPattern    = "directory:*"
	defaultDirectoryTTL    = 10 * time.Minute
)

// snapshotStore persists serialised values under namespaced keys.
type snapshotStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// directorySnapshot is the stored form of one directory listing.
type directorySnapshot[T any] struct {
	Items    []T       `json:"items"`
	CachedAt time.Time `json:"cachedAt"`
}

// DirectoryCache keeps the instructor and course directories that search matches against.
// A read failure counts as a miss; the caller always has the backend to fall back on.
type DirectoryCache struct {
	store   snapshotStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
	now     func() time.Time
}

// NewDirectoryCache constructs DirectoryCache. A disabled cache misses on every read.
func NewDirectoryCache(store snapshotStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *DirectoryCache {
	if ttl <= 0 {
		ttl = defaultDirectoryTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryCache{store: store, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled, now: time.Now}
}

// Enabled indicates whether snapshots are read and written.
func (c *DirectoryCache) Enabled() bool {
	return c != nil && c.enabled && c.store != nil
}

// Instructors returns the cached instructor directory.
func (c *DirectoryCache) Instructors(ctx context.Context) ([]models.Instructor, bool) {
	return loadSnapshot[models.Instructor](ctx, c, instructorDirectoryKey)
}

// StoreInstructors caches the instructor directory.
func (c *DirectoryCache) StoreInstructors(ctx context.Context, items []models.Instructor) {
	storeSnapshot(ctx, c, instructorDirectoryKey, items)
}

// Courses returns the cached course directory.
func (c *DirectoryCache) Courses(ctx context.Context) ([]models.Course, bool) {
	return loadSnapshot[models.Course](ctx, c, courseDirectoryKey)
}

// StoreCourses caches the course directory.
func (c *DirectoryCache) StoreCourses(ctx context.Context, items []models.Course) {
	storeSnapshot(ctx, c, courseDirectoryKey, items)
}

// Flush drops every directory snapshot.
func (c *DirectoryCache) Flush(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.store.DeleteByPattern(ctx, directoryKeyPattern); err != nil {
		c.logger.Warn("directory cache flush failed", zap.Error(err))
		return err
	}
	return nil
}

func loadSnapshot[T any](ctx context.Context, c *DirectoryCache, key string) ([]T, bool) {
	if !c.Enabled() {
		return nil, false
	}
	start := time.Now()
	var snap directorySnapshot[T]
	err := c.store.Get(ctx, key, &snap)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("directory cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	c.logger.Debug("directory served from cache",
		zap.String("key", key),
		zap.Int("items", len(snap.Items)),
		zap.Duration("age", c.now().Sub(snap.CachedAt)))
	return snap.Items, true
}

func storeSnapshot[T any](ctx context.Context, c *DirectoryCache, key string, items []T) {
	if !c.Enabled() {
		return
	}
	start := time.Now()
	err := c.store.Set(ctx, key, directorySnapshot[T]{Items: items, CachedAt: c.now().UTC()}, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("directory cache write failed", zap.String("key", key), zap.Error(err))
	}
}
