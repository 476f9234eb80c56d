package services

import (
	"context"
	"sync"

	"rate-analysis-service/models"
	"rate-analysis-service/repository"
	"rate-analysis-service/tracker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// dbStatusFetcher implements tracker.StatusFetcher against the analyses
// table.
type dbStatusFetcher struct {
	repo repository.AnalysisRepository
}

// NewDBStatusFetcher creates a status fetcher backed by the analyses table.
func NewDBStatusFetcher(repo repository.AnalysisRepository) tracker.StatusFetcher {
	return &dbStatusFetcher{repo: repo}
}

func (f *dbStatusFetcher) FetchStatus(ctx context.Context, analysisID uuid.UUID) (*models.AnalysisStatus, error) {
	a, err := f.repo.FindByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	status := statusFromAnalysis(a)
	return &status, nil
}

// TrackerRegistry owns the live trackers for analyses currently processing.
// One tracker per analysis; a tracker deregisters itself once it observes a
// terminal status.
type TrackerRegistry struct {
	fetcher tracker.StatusFetcher
	logger  *zap.Logger
	opts    tracker.Options

	mu       sync.Mutex
	trackers map[uuid.UUID]*trackedAnalysis
	closed   bool
}

type trackedAnalysis struct {
	userID  string
	tracker *tracker.Tracker
}

// NewTrackerRegistry creates an empty registry.
func NewTrackerRegistry(fetcher tracker.StatusFetcher, logger *zap.Logger, opts tracker.Options) *TrackerRegistry {
	return &TrackerRegistry{
		fetcher:  fetcher,
		logger:   logger,
		opts:     opts,
		trackers: make(map[uuid.UUID]*trackedAnalysis),
	}
}

// Watch starts tracking an analysis. Repeat calls return the existing
// tracker.
func (r *TrackerRegistry) Watch(analysisID uuid.UUID, userID string) *tracker.Tracker {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	if entry, ok := r.trackers[analysisID]; ok {
		r.mu.Unlock()
		return entry.tracker
	}

	t := tracker.New(analysisID, r.fetcher, r.logger, r.opts)
	r.trackers[analysisID] = &trackedAnalysis{userID: userID, tracker: t}
	r.mu.Unlock()

	t.Start(context.Background())
	go func() {
		<-t.Done()
		r.Remove(analysisID)
	}()
	return t
}

// Lookup returns the live tracker for an analysis owned by userID.
func (r *TrackerRegistry) Lookup(analysisID uuid.UUID, userID string) (*tracker.Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.trackers[analysisID]
	if !ok || entry.userID != userID {
		return nil, false
	}
	return entry.tracker, true
}

// Apply routes a push update to the matching tracker. It reports whether a
// tracker accepted the update.
func (r *TrackerRegistry) Apply(status models.AnalysisStatus) bool {
	r.mu.Lock()
	entry, ok := r.trackers[status.AnalysisID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return entry.tracker.Apply(status)
}

// Remove stops and drops the tracker for an analysis, if any.
func (r *TrackerRegistry) Remove(analysisID uuid.UUID) {
	r.mu.Lock()
	entry, ok := r.trackers[analysisID]
	if ok {
		delete(r.trackers, analysisID)
	}
	r.mu.Unlock()

	if ok {
		entry.tracker.Stop()
	}
}

// Shutdown stops every live tracker. The registry accepts no new watches
// afterwards.
func (r *TrackerRegistry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	entries := make([]*trackedAnalysis, 0, len(r.trackers))
	for _, entry := range r.trackers {
		entries = append(entries, entry)
	}
	r.trackers = make(map[uuid.UUID]*trackedAnalysis)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.tracker.Stop()
	}
}
