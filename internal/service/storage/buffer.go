package storage

import (
	"context"
	"sync"
	"time"

	"petlens/internal/config"
	"petlens/internal/logger"
	"petlens/internal/model"
	"petlens/internal/repository"
	"petlens/internal/service/vision"
)

// BufferService buffers detection history in memory and periodically flushes
// it to the detection repository.
type BufferService struct {
	detections    []model.Detection
	limit         int
	interval      time.Duration
	dropped       int
	mu            sync.Mutex
	logger        *logger.Logger
	detectionRepo repository.DetectionRepository
}

// NewBufferService creates a BufferService sized from the configuration.
func NewBufferService(config *config.Config, logger *logger.Logger, detectionRepo repository.DetectionRepository) *BufferService {
	return &BufferService{
		detections:    make([]model.Detection, 0, config.HistoryBufferLimit),
		limit:         config.HistoryBufferLimit,
		interval:      time.Duration(config.HistoryFlushInterval) * time.Second,
		logger:        logger,
		detectionRepo: detectionRepo,
	}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.interval = 30 * time.Second
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushDetections()
		case <-ctx.Done():
			s.FlushDetections()
			return
		}
	}
}

// Record adds one row per detected object. Once the buffer holds limit rows,
// further rows are dropped until the next flush.
func (s *BufferService) Record(timestamp time.Time, objects []model.DetectedObject, match *vision.Match) {
	if len(objects) == 0 {
		return
	}

	matchedPostID := ""
	if match != nil {
		matchedPostID = match.Post.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, object := range objects {
		if len(s.detections) >= s.limit {
			s.dropped++
			continue
		}
		s.detections = append(s.detections, model.Detection{
			Timestamp:     timestamp,
			Label:         object.Label,
			Confidence:    object.Confidence,
			MatchedPostID: matchedPostID,
		})
	}
}

// Pending returns the number of buffered rows.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.detections)
}

// FlushDetections writes the buffered rows and resets the buffer. It returns
// how many rows were written.
func (s *BufferService) FlushDetections() int {
	s.mu.Lock()
	batch := s.detections
	dropped := s.dropped
	s.detections = make([]model.Detection, 0, s.limit)
	s.dropped = 0
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warning("History buffer full, dropped %d detections", dropped)
	}
	if len(batch) == 0 {
		return 0
	}

	if err := s.detectionRepo.InsertBatch(batch); err != nil {
		s.logger.Error("Error saving detections to database: %v", err)
		return 0
	}

	s.logger.Info("Flushed %d detections to history", len(batch))
	return len(batch)
}
