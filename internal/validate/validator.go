package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vodhub/backend/internal/repo"
	"github.com/vodhub/backend/internal/score"
	"github.com/vodhub/backend/pkg/logger"
	"github.com/vodhub/backend/pkg/status"
)

// ErrProbeFailed marks a single unreachable URL. It downgrades that route
// only, never the whole record.
var ErrProbeFailed = errors.New("probe failed")

const maxWriteAttempts = 3

type videoStore interface {
	FindStalestValidated(ctx context.Context, limit int64) ([]repo.Video, error)
	FindByID(ctx context.Context, id string) (*repo.Video, error)
	ReplaceVersioned(ctx context.Context, v *repo.Video) error
}

type indexer interface {
	IndexVideo(ctx context.Context, v *repo.Video) error
}

type Stats struct {
	Checked     int `json:"checked"`
	Valid       int `json:"valid"`
	Invalidated int `json:"invalidated"`
}

// Validator re-checks stored playback URLs and retires dead routes. A record
// whose last route dies is soft-invalidated, never deleted.
type Validator struct {
	store       videoStore
	search      indexer
	client      *http.Client
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

func New(store videoStore, search indexer, timeout time.Duration, maxAttempts int, backoff time.Duration) *Validator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Validator{
		store:  store,
		search: search,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		timeout:     timeout,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// ValidateBatch probes up to limit records, oldest validation first so
// coverage rotates through the catalog.
func (v *Validator) ValidateBatch(ctx context.Context, limit int64) (Stats, error) {
	log := logger.Log

	videos, err := v.store.FindStalestValidated(ctx, limit)
	if err != nil {
		return Stats{}, fmt.Errorf("select batch: %w", err)
	}

	var stats Stats
	for i := range videos {
		stillValid, err := v.validateVideo(ctx, &videos[i], "")
		if err != nil {
			log.Warn().Err(err).Str("video", videos[i].ID.Hex()).Msg("validation write failed")
			continue
		}
		stats.Checked++
		if stillValid {
			stats.Valid++
		} else {
			stats.Invalidated++
		}
	}

	if stats.Checked > 0 {
		log.Info().
			Int("checked", stats.Checked).
			Int("valid", stats.Valid).
			Int("invalidated", stats.Invalidated).
			Msg("validation batch finished")
	}
	return stats, nil
}

// CheckVideo is the immediate single-record path fed by user reports. When
// reportedURL is set only matching routes are probed; otherwise all of them.
func (v *Validator) CheckVideo(ctx context.Context, videoID, reportedURL string) (bool, error) {
	video, err := v.store.FindByID(ctx, videoID)
	if err != nil {
		return false, fmt.Errorf("find video %s: %w", videoID, err)
	}
	if video == nil {
		return false, fmt.Errorf("video %s not found", videoID)
	}
	return v.validateVideo(ctx, video, reportedURL)
}

// validateVideo probes the record's routes, drops the dead ones and persists
// the result with the same per-row optimistic write as the merge engine.
func (v *Validator) validateVideo(ctx context.Context, video *repo.Video, onlyURL string) (bool, error) {
	deadRoutes := map[string]string{}
	for key, url := range video.PlayRoutes {
		if onlyURL != "" && url != onlyURL {
			continue
		}
		if err := v.probe(ctx, url); err != nil {
			logger.Log.Debug().Err(err).Str("video", video.ID.Hex()).Str("route", key).Msg("route probe failed")
			deadRoutes[key] = url
		}
	}

	current := video
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		applyValidation(current, deadRoutes)

		err := v.store.ReplaceVersioned(ctx, current)
		if errors.Is(err, status.ErrConcurrentUpdate) {
			fresh, ferr := v.store.FindByID(ctx, video.ID.Hex())
			if ferr != nil || fresh == nil {
				return false, fmt.Errorf("reread after conflict: %w", ferr)
			}
			current = fresh
			continue
		}
		if err != nil {
			return false, err
		}

		v.syncIndex(ctx, current)
		return current.IsValid, nil
	}

	return false, status.ErrConcurrentUpdate
}

// applyValidation removes dead routes and recomputes the record's validity,
// score and validation timestamp in place. A route key is only deleted while
// it still holds the URL that was probed; a concurrent merge may have put a
// fresh, never-probed URL under the same key.
func applyValidation(video *repo.Video, deadRoutes map[string]string) {
	for key, url := range deadRoutes {
		if video.PlayRoutes[key] == url {
			delete(video.PlayRoutes, key)
		}
	}

	video.IsValid = len(video.PlayRoutes) > 0
	video.QualityScore = score.Score(score.Record{
		Cover:      video.Cover,
		Cast:       video.Cast,
		Directors:  video.Directors,
		Synopsis:   video.Synopsis,
		PlayRoutes: video.PlayRoutes,
	})
	now := time.Now()
	video.LastValidatedAt = &now
}

// probe issues a bounded-timeout HEAD, falling back to GET for servers that
// reject HEAD, retrying per the policy before classifying the URL dead.
func (v *Validator) probe(ctx context.Context, url string) error {
	var lastErr error

	for attempt := 0; attempt < v.maxAttempts; attempt++ {
		if attempt > 0 && v.backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(v.backoff):
			}
		}

		lastErr = v.probeOnce(ctx, url)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %s: %v", ErrProbeFailed, url, lastErr)
}

func (v *Validator) probeOnce(ctx context.Context, url string) error {
	code, err := v.request(ctx, http.MethodHead, url)
	if err == nil && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		code, err = v.request(ctx, http.MethodGet, url)
	}
	if err != nil {
		return err
	}
	if code >= 400 {
		return fmt.Errorf("status %d", code)
	}
	return nil
}

func (v *Validator) request(ctx context.Context, method, url string) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (v *Validator) syncIndex(ctx context.Context, video *repo.Video) {
	if v.search == nil {
		return
	}
	if err := v.search.IndexVideo(ctx, video); err != nil {
		logger.Log.Warn().Err(err).Str("video", video.ID.Hex()).Msg("search index sync failed")
	}
}
