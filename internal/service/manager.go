// Package service wires the live pipeline: capture, detection, overlay
// rendering and community matching.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"petlens/internal/dto"
	"petlens/internal/logger"
	"petlens/internal/model"
	"petlens/internal/service/overlay"
	"petlens/internal/service/vision"
)

// captureRetryDelay is the pause after a failed frame read.
const captureRetryDelay = 100 * time.Millisecond

// Annotator draws detections onto a JPEG.
type Annotator interface {
	DrawDetections(objects []model.DetectedObject, image []byte) ([]byte, error)
}

// Broadcaster delivers messages to every live viewer without blocking. Frames
// and overlays travel on separate queues; false means the message was dropped.
type Broadcaster interface {
	Broadcast(message []byte) bool
	BroadcastOverlay(message []byte) bool
}

// HistoryRecorder keeps detection cycles for the statistics view.
type HistoryRecorder interface {
	Record(timestamp time.Time, objects []model.DetectedObject, match *vision.Match)
}

// Stats counts what the pipeline has done since it started.
type Stats struct {
	Captured  int64 `json:"captured"`
	Dropped   int64 `json:"dropped"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`

	// Messages the viewer hub had no room for.
	FramesNotSent   int64 `json:"framesNotSent"`
	OverlaysNotSent int64 `json:"overlaysNotSent"`
}

type cycle struct {
	frame   vision.Frame
	objects []model.DetectedObject
}

// Manager runs the live pipeline. One goroutine captures, one detects and
// one renders; the render goroutine owns the overlay renderer and is the only
// place results are published from.
type Manager struct {
	source      vision.FrameSource
	classifier  vision.Classifier
	orientation vision.Orientation
	matcher     *vision.Matcher
	renderer    *overlay.Renderer
	annotator   Annotator
	hub         Broadcaster
	history     HistoryRecorder
	logger      *logger.Logger

	frames  chan vision.Frame
	results chan cycle

	pendingBounds atomic.Pointer[image.Point]
	latest        atomic.Pointer[dto.OverlayMessage]

	captured  atomic.Int64
	dropped   atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64

	framesNotSent   atomic.Int64
	overlaysNotSent atomic.Int64
}

// ManagerOptions lists the pipeline's collaborators. Annotator, Hub and
// History may be nil.
type ManagerOptions struct {
	Source      vision.FrameSource
	Classifier  vision.Classifier
	Orientation vision.Orientation
	Matcher     *vision.Matcher
	Display     image.Point
	Annotator   Annotator
	Hub         Broadcaster
	History     HistoryRecorder
}

func NewManager(opts ManagerOptions, logger *logger.Logger) *Manager {
	return &Manager{
		source:      opts.Source,
		classifier:  opts.Classifier,
		orientation: opts.Orientation,
		matcher:     opts.Matcher,
		renderer:    overlay.NewRenderer(opts.Source.Resolution(), opts.Display),
		annotator:   opts.Annotator,
		hub:         opts.Hub,
		history:     opts.History,
		logger:      logger,
		frames:      make(chan vision.Frame),
		results:     make(chan cycle),
	}
}

// Run blocks until ctx is done or the source is closed.
func (m *Manager) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		defer cancel()
		m.captureLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		m.detectionWorker(ctx)
	}()
	go func() {
		defer wg.Done()
		m.renderLoop(ctx)
	}()

	m.logger.Info("Pipeline started, orientation %s", m.orientation)
	wg.Wait()
	m.logger.Info("Pipeline stopped")
}

func (m *Manager) captureLoop(ctx context.Context) {
	for {
		frame, err := m.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, vision.ErrSourceClosed) {
				return
			}
			m.logger.Warning("Frame read failed: %v", err)
			select {
			case <-time.After(captureRetryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}
		m.captured.Add(1)
		m.sendToViewers(frame)

		// At most one frame is in detection; the rest are dropped.
		select {
		case m.frames <- frame:
		default:
			m.dropped.Add(1)
		}
	}
}

func (m *Manager) detectionWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-m.frames:
			objects, err := m.classifier.Classify(ctx, frame.Data, m.orientation)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.failed.Add(1)
				m.logger.Warning("Detection failed on frame %d: %v", frame.Index, err)
				continue
			}

			select {
			case m.results <- cycle{frame: frame, objects: objects}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (m *Manager) renderLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-m.results:
			m.publish(ctx, c)
		}
	}
}

// publish renders one cycle, matches it against the feed and sends the
// result to viewers. Runs on the render goroutine only.
func (m *Manager) publish(ctx context.Context, c cycle) {
	if bounds := m.pendingBounds.Swap(nil); bounds != nil {
		if m.renderer.SetBounds(*bounds) {
			m.logger.Info("Display bounds changed to %dx%d", bounds.X, bounds.Y)
		}
	}

	shapes := m.renderer.Render(c.objects)

	match, err := m.matcher.Match(ctx, c.objects)
	if err != nil {
		m.logger.Warning("Match failed on frame %d: %v", c.frame.Index, err)
		match = nil
	}

	native := m.source.Resolution()
	bounds := m.renderer.Bounds()
	msg := &dto.OverlayMessage{
		Type:      dto.MessageOverlay,
		Index:     c.frame.Index,
		Timestamp: c.frame.Timestamp,
		Native:    dto.Size{Width: native.X, Height: native.Y},
		Bounds:    dto.Size{Width: bounds.X, Height: bounds.Y},
		Shapes:    shapes,
		Labels:    model.Labels(c.objects),
		Match:     dto.NewMatchSummary(match),
	}
	m.latest.Store(msg)
	m.processed.Add(1)

	if m.history != nil {
		m.history.Record(c.frame.Timestamp, c.objects, match)
	}
	if payload, ok := m.encode(msg); ok && !m.hub.BroadcastOverlay(payload) {
		m.overlaysNotSent.Add(1)
	}
}

func (m *Manager) sendToViewers(frame vision.Frame) {
	payload, ok := m.encode(dto.FrameMessage{
		Type:      dto.MessageFrame,
		Index:     frame.Index,
		Timestamp: frame.Timestamp,
		Image:     frame.Data,
	})
	if ok && !m.hub.Broadcast(payload) {
		m.framesNotSent.Add(1)
	}
}

// encode marshals a viewer message. It reports false when there is no hub
// or the message cannot be encoded.
func (m *Manager) encode(v any) ([]byte, bool) {
	if m.hub == nil {
		return nil, false
	}
	payload, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("Failed to encode viewer message: %v", err)
		return nil, false
	}
	return payload, true
}

// SetDisplayBounds records a new viewer size. It takes effect on the next
// rendered cycle; the last size reported wins.
func (m *Manager) SetDisplayBounds(bounds image.Point) {
	m.pendingBounds.Store(&bounds)
}

// Latest returns the most recently published cycle, or nil.
func (m *Manager) Latest() *dto.OverlayMessage {
	return m.latest.Load()
}

// Stats returns the pipeline counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Captured:  m.captured.Load(),
		Dropped:   m.dropped.Load(),
		Processed: m.processed.Load(),
		Failed:    m.failed.Load(),

		FramesNotSent:   m.framesNotSent.Load(),
		OverlaysNotSent: m.overlaysNotSent.Load(),
	}
}

// Analyze runs one still image through the detector and the matcher outside
// the live pipeline. The annotated image is included when an annotator is set.
func (m *Manager) Analyze(ctx context.Context, img []byte, orientation vision.Orientation) (*dto.Analysis, error) {
	objects, err := m.classifier.Classify(ctx, img, orientation)
	if err != nil {
		return nil, err
	}
	if objects == nil {
		objects = []model.DetectedObject{}
	}

	match, err := m.matcher.Match(ctx, objects)
	if err != nil {
		return nil, err
	}

	analysis := &dto.Analysis{
		Objects: objects,
		Labels:  model.Labels(objects),
		Match:   dto.NewMatchSummary(match),
	}

	if m.annotator != nil && len(objects) > 0 {
		annotated, err := m.annotator.DrawDetections(objects, img)
		if err != nil {
			m.logger.Warning("Failed to annotate image: %v", err)
		} else {
			analysis.Image = annotated
		}
	}
	return analysis, nil
}
