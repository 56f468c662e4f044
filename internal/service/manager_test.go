package service

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petlens/internal/dto"
	"petlens/internal/logger"
	"petlens/internal/model"
	"petlens/internal/service/overlay"
	"petlens/internal/service/vision"
)

type chanSource struct {
	frames chan vision.Frame
}

func newChanSource() *chanSource {
	return &chanSource{frames: make(chan vision.Frame)}
}

func (s *chanSource) Read(ctx context.Context) (vision.Frame, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return vision.Frame{}, vision.ErrSourceClosed
		}
		return f, nil
	case <-ctx.Done():
		return vision.Frame{}, ctx.Err()
	}
}

func (s *chanSource) Resolution() image.Point { return image.Pt(1280, 720) }
func (s *chanSource) Close() error            { close(s.frames); return nil }

func (s *chanSource) push(t *testing.T, index int64, data string) {
	t.Helper()
	select {
	case s.frames <- vision.Frame{Data: []byte(data), Width: 1280, Height: 720, Index: index, Timestamp: time.Now()}:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not take frame")
	}
}

type staticPosts []model.Post

func (p staticPosts) ListPosts(ctx context.Context) ([]model.Post, error) {
	return p, nil
}

type recordingHub struct {
	mu       sync.Mutex
	messages []map[string]any
}

func (h *recordingHub) Broadcast(message []byte) bool {
	var m map[string]any
	if err := json.Unmarshal(message, &m); err != nil {
		return false
	}
	h.mu.Lock()
	h.messages = append(h.messages, m)
	h.mu.Unlock()
	return true
}

func (h *recordingHub) BroadcastOverlay(message []byte) bool {
	return h.Broadcast(message)
}

// fullHub has no room for any message.
type fullHub struct{}

func (fullHub) Broadcast(message []byte) bool        { return false }
func (fullHub) BroadcastOverlay(message []byte) bool { return false }

func (h *recordingHub) countType(kind string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, m := range h.messages {
		if m["type"] == kind {
			n++
		}
	}
	return n
}

type recordingHistory struct {
	mu     sync.Mutex
	cycles int
	match  string
}

func (h *recordingHistory) Record(ts time.Time, objects []model.DetectedObject, match *vision.Match) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cycles++
	if match != nil {
		h.match = match.Post.ID
	}
}

func (h *recordingHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cycles
}

// fullFrameDog reports a dog covering the whole frame for any image except
// "fail".
var fullFrameDog = vision.ClassifierFunc(func(ctx context.Context, img []byte, o vision.Orientation) ([]model.DetectedObject, error) {
	if string(img) == "fail" {
		return nil, errors.New("bad frame")
	}
	return []model.DetectedObject{{
		BoundingBox: model.BoundingBox{X: 0, Y: 0, Width: 1, Height: 1},
		Confidence:  0.9,
		Label:       "dog",
	}}, nil
})

var feed = staticPosts{
	{ID: "cat-post", ImageData: []byte{1}, Observations: []model.DetectedObject{{Label: "cat"}}},
	{ID: "dog-post", ImageData: []byte{1}, Observations: []model.DetectedObject{{Label: "dog"}}},
}

func startManager(t *testing.T, opts ManagerOptions) (*Manager, context.CancelFunc, <-chan struct{}) {
	t.Helper()

	log := logger.New(io.Discard)
	if opts.Matcher == nil {
		opts.Matcher = vision.NewMatcher(feed, nil, false, log)
	}
	if opts.Display == (image.Point{}) {
		opts.Display = image.Pt(360, 640)
	}
	m := NewManager(opts, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m, cancel, done
}

func TestManager_PublishesCycle(t *testing.T) {
	src := newChanSource()
	hub := &recordingHub{}
	history := &recordingHistory{}

	m, _, _ := startManager(t, ManagerOptions{
		Source:      src,
		Classifier:  fullFrameDog,
		Orientation: vision.OrientationRight,
		Hub:         hub,
		History:     history,
	})

	src.push(t, 1, "frame")

	require.Eventually(t, func() bool { return m.Latest() != nil }, 2*time.Second, 5*time.Millisecond)

	latest := m.Latest()
	assert.Equal(t, int64(1), latest.Index)
	assert.Equal(t, dto.Size{Width: 1280, Height: 720}, latest.Native)
	assert.Equal(t, dto.Size{Width: 360, Height: 640}, latest.Bounds)
	assert.Equal(t, []string{"dog"}, latest.Labels)
	require.Len(t, latest.Shapes, 1)
	assert.Equal(t, overlay.Rect{X: 0, Y: 0, Width: 360, Height: 640}, latest.Shapes[0].Rect)
	assert.Equal(t, "dog (0.90)", latest.Shapes[0].Caption)
	require.NotNil(t, latest.Match)
	assert.Equal(t, "dog-post", latest.Match.PostID)
	assert.InDelta(t, 1.0, latest.Match.Similarity, 1e-9)

	require.Eventually(t, func() bool { return hub.countType(dto.MessageOverlay) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.countType(dto.MessageFrame))
	assert.Equal(t, 1, history.count())
	assert.Equal(t, "dog-post", history.match)
}

func TestManager_CountsMessagesViewersMissed(t *testing.T) {
	src := newChanSource()
	m, _, _ := startManager(t, ManagerOptions{
		Source:     src,
		Classifier: fullFrameDog,
		Hub:        fullHub{},
	})

	src.push(t, 1, "frame")

	require.Eventually(t, func() bool { return m.Stats().OverlaysNotSent == 1 }, 2*time.Second, 5*time.Millisecond)
	stats := m.Stats()
	assert.Equal(t, int64(1), stats.FramesNotSent)
	assert.Equal(t, int64(1), stats.Processed)
}

func TestManager_DropsFramesWhileBusy(t *testing.T) {
	src := newChanSource()
	entered := make(chan struct{}, 16)
	release := make(chan struct{})

	blocking := vision.ClassifierFunc(func(ctx context.Context, img []byte, o vision.Orientation) ([]model.DetectedObject, error) {
		entered <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return nil, nil
	})

	m, _, _ := startManager(t, ManagerOptions{Source: src, Classifier: blocking})

	// Feed until the worker has taken a frame.
	var index int64
	require.Eventually(t, func() bool {
		index++
		src.push(t, index, "frame")
		return len(entered) == 1
	}, 2*time.Second, 5*time.Millisecond)

	for i := 0; i < 5; i++ {
		index++
		src.push(t, index, "frame")
	}

	require.Eventually(t, func() bool { return m.Stats().Captured == index }, 2*time.Second, 5*time.Millisecond)
	stats := m.Stats()
	assert.Equal(t, index-1, stats.Dropped, "only one frame in flight")
	assert.Len(t, entered, 1)

	close(release)
	require.Eventually(t, func() bool { return m.Stats().Processed == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, m.Latest().Shapes)
	assert.Nil(t, m.Latest().Match)
}

func TestManager_DetectionFailureIsDropped(t *testing.T) {
	src := newChanSource()
	m, _, _ := startManager(t, ManagerOptions{Source: src, Classifier: fullFrameDog})

	src.push(t, 1, "fail")
	require.Eventually(t, func() bool { return m.Stats().Failed == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Nil(t, m.Latest())

	require.Eventually(t, func() bool {
		src.push(t, 2, "frame")
		return m.Stats().Processed >= 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.NotNil(t, m.Latest(), "pipeline keeps going after a failure")
}

func TestManager_DisplayBounds(t *testing.T) {
	src := newChanSource()
	m, _, _ := startManager(t, ManagerOptions{Source: src, Classifier: fullFrameDog})

	m.SetDisplayBounds(image.Pt(720, 1280))
	src.push(t, 1, "frame")

	require.Eventually(t, func() bool { return m.Latest() != nil }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, dto.Size{Width: 720, Height: 1280}, m.Latest().Bounds)
	assert.Equal(t, overlay.Rect{X: 0, Y: 0, Width: 720, Height: 1280}, m.Latest().Shapes[0].Rect)
}

func TestManager_StopsWhenSourceCloses(t *testing.T) {
	src := newChanSource()
	_, _, done := startManager(t, ManagerOptions{Source: src, Classifier: fullFrameDog})

	require.NoError(t, src.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

type stampAnnotator struct{}

func (stampAnnotator) DrawDetections(objects []model.DetectedObject, img []byte) ([]byte, error) {
	return append([]byte("annotated:"), img...), nil
}

func TestManager_Analyze(t *testing.T) {
	log := logger.New(io.Discard)
	m := NewManager(ManagerOptions{
		Source:     newChanSource(),
		Classifier: fullFrameDog,
		Matcher:    vision.NewMatcher(feed, nil, false, log),
		Annotator:  stampAnnotator{},
	}, log)

	analysis, err := m.Analyze(context.Background(), []byte("photo"), vision.OrientationUp)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog"}, analysis.Labels)
	require.NotNil(t, analysis.Match)
	assert.Equal(t, "dog-post", analysis.Match.PostID)
	assert.Equal(t, []byte("annotated:photo"), analysis.Image)

	_, err = m.Analyze(context.Background(), []byte("fail"), vision.OrientationUp)
	assert.Error(t, err)
}
