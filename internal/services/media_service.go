// Package service holds the media lifecycle: ingestion (transcode, store,
// record), retrieval (proxy and link modes) and the two-step deletion
// pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/looking-sharp/Media-Management-Microservice/internal/identity"
	models "github.com/looking-sharp/Media-Management-Microservice/internal/media"
	"github.com/looking-sharp/Media-Management-Microservice/internal/metrics"
	"github.com/looking-sharp/Media-Management-Microservice/internal/storage"
	"github.com/looking-sharp/Media-Management-Microservice/internal/transcode"
	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

// maxInsertRetries bounds how often a lost short-id insert race is retried
// before giving up with ErrCollisionExhausted.
const maxInsertRetries = 3

type Repository interface {
	Insert(ctx context.Context, m *models.Media) error
	ShortIDExists(ctx context.Context, shortID string) (bool, error)
	GetByShortID(ctx context.Context, shortID string) (*models.Media, error)
	DeleteByShortID(ctx context.Context, shortID string) error
}

type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
}

type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Scheduler enqueues a future reap of an expiring item.
type Scheduler interface {
	ScheduleReap(ctx context.Context, shortID string, at time.Time) error
}

type Options struct {
	SizeCeiling  int64
	PublicRead   bool
	PresignTTL   time.Duration
	LinkCacheTTL time.Duration
	DeleteAfter  time.Duration
}

type MediaService struct {
	repo  Repository
	store ObjectStore
	fetch Fetcher
	cache Cache     // optional
	sched Scheduler // optional
	log   *zap.SugaredLogger
	opts  Options
}

func NewMediaService(repo Repository, store ObjectStore, fetch Fetcher, cache Cache, sched Scheduler, log *zap.SugaredLogger, opts Options) *MediaService {
	return &MediaService{repo: repo, store: store, fetch: fetch, cache: cache, sched: sched, log: log, opts: opts}
}

// Upload ingests one file. Image payloads are transcoded under the size
// ceiling first; everything else is stored verbatim. The backend write
// strictly precedes the metadata insert, and an insert failure removes the
// just-written object, so no half-created item ever becomes visible.
func (s *MediaService) Upload(ctx context.Context, fileName, contentType string, data []byte) (*models.Media, error) {
	payload, mimeType := data, contentType
	if strings.HasPrefix(contentType, "image/") {
		start := time.Now()
		out, canonical, err := transcode.Transcode(data, s.opts.SizeCeiling)
		metrics.TranscodeSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}
		payload, mimeType = out, canonical
	}

	internalID := identity.NewID()
	key := storage.DeriveKey(internalID, mimeType)
	url, err := s.store.Upload(ctx, key, mimeType, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrUpstreamUnavailable, err)
	}

	var deleteAt *time.Time
	if s.opts.DeleteAfter > 0 {
		t := time.Now().UTC().Add(s.opts.DeleteAfter)
		deleteAt = &t
	}

	var m *models.Media
	for attempt := 0; ; attempt++ {
		shortID, err := identity.NewShortID(ctx, s.repo.ShortIDExists)
		if err != nil {
			s.compensate(key)
			return nil, err
		}
		m = &models.Media{
			InternalID: internalID,
			ShortID:    shortID,
			FileName:   fileName,
			MimeType:   mimeType,
			SizeBytes:  int64(len(payload)),
			StorageKey: key,
			BackendURL: url,
			CreatedAt:  time.Now().UTC(),
			DeleteAt:   deleteAt,
		}
		err = s.repo.Insert(ctx, m)
		if err == nil {
			break
		}
		if errors.Is(err, utils.ErrDuplicateShortID) {
			if attempt < maxInsertRetries {
				s.log.Warnw("short id lost insert race, regenerating", "short_id", shortID)
				continue
			}
			s.compensate(key)
			return nil, utils.ErrCollisionExhausted
		}
		s.compensate(key)
		return nil, fmt.Errorf("insert media record: %w", err)
	}

	if m.DeleteAt != nil && s.sched != nil {
		if err := s.sched.ScheduleReap(ctx, m.ShortID, *m.DeleteAt); err != nil {
			// item stays retrievable; a missed schedule only delays expiry
			s.log.Errorw("schedule reap", "short_id", m.ShortID, "err", err)
		}
	}
	return m, nil
}

// compensate removes an object whose metadata never got written. Runs on its
// own context because the request context is usually already dead here.
func (s *MediaService) compensate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Errorw("compensating object delete failed", "key", key, "err", err)
	}
}

// Access resolves a short id and streams the backend object. The caller must
// close the reader. No backend fetch happens when the record is missing.
func (s *MediaService) Access(ctx context.Context, shortID string) (io.ReadCloser, string, error) {
	m, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, "", err
	}
	fetchURL := m.BackendURL
	if !s.opts.PublicRead {
		if fetchURL, err = s.store.PresignURL(ctx, m.StorageKey, s.opts.PresignTTL); err != nil {
			return nil, "", fmt.Errorf("%w: %v", utils.ErrUpstreamUnavailable, err)
		}
	}
	resp, err := s.fetch.Get(ctx, fetchURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", utils.ErrUpstreamUnavailable, err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// AccessLink resolves a short id to a direct URL without fetching content.
// Private buckets get a presigned link, cached for its TTL.
func (s *MediaService) AccessLink(ctx context.Context, shortID string) (string, error) {
	m, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return "", err
	}
	if s.opts.PublicRead {
		return m.BackendURL, nil
	}
	cacheKey := "signed:" + m.ShortID
	if s.cache != nil {
		if link, err := s.cache.Get(ctx, cacheKey); err == nil && link != "" {
			return link, nil
		}
	}
	link, err := s.store.PresignURL(ctx, m.StorageKey, s.opts.PresignTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrUpstreamUnavailable, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, link, s.opts.LinkCacheTTL); err != nil {
			s.log.Warnw("cache signed url", "short_id", m.ShortID, "err", err)
		}
	}
	return link, nil
}

// Delete removes backend object then metadata, in that order. A backend
// failure keeps the record so the caller can retry; a metadata failure after
// the object is gone is reported distinctly (retrying converges because the
// backend delete is ensure-absent and the record delete is idempotent).
func (s *MediaService) Delete(ctx context.Context, shortID string) error {
	m, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, m.StorageKey); err != nil {
		return &utils.PartialDeleteError{Stage: "backend", Err: err}
	}
	if err := s.repo.DeleteByShortID(ctx, shortID); err != nil {
		s.log.Errorw("metadata removal failed after object delete",
			"short_id", shortID, "key", m.StorageKey, "err", err)
		return &utils.PartialDeleteError{Stage: "metadata", Err: err}
	}
	return nil
}
