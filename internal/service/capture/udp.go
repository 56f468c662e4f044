// Package capture receives JPEG frames sent over UDP by network cameras.
package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	"net"
	"sync"
	"time"

	"petlens/internal/logger"
	"petlens/internal/service/vision"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// readTimeout bounds each socket read so Read notices a cancelled context.
const readTimeout = 500 * time.Millisecond

// UDPSource reassembles JPEG frames from UDP packets. A packet starting with
// the JPEG start marker begins a frame; one ending with the end marker
// completes it. Frames are tracked per sender.
type UDPSource struct {
	conn       *net.UDPConn
	buffers    map[string]*bytes.Buffer
	packet     []byte
	resolution image.Point
	index      int64
	logger     *logger.Logger

	mu    sync.Mutex // held by Read
	resMu sync.RWMutex
}

// ListenUDP opens a UDP socket on addr. fallback is reported as the
// resolution until the first frame is decoded.
func ListenUDP(addr string, fallback image.Point, logger *logger.Logger) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	logger.Info("UDP frame source listening on %s", conn.LocalAddr())
	return &UDPSource{
		conn:       conn,
		buffers:    make(map[string]*bytes.Buffer),
		packet:     make([]byte, 65535),
		resolution: fallback,
		logger:     logger,
	}, nil
}

// Addr returns the bound socket address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Read blocks until a complete frame has arrived.
func (s *UDPSource) Read(ctx context.Context) (vision.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return vision.Frame{}, err
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return vision.Frame{}, vision.ErrSourceClosed
			}
			return vision.Frame{}, err
		}

		n, remote, err := s.conn.ReadFromUDP(s.packet)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return vision.Frame{}, vision.ErrSourceClosed
			}
			return vision.Frame{}, err
		}

		if frame, ok := s.assemble(remote.IP.String(), s.packet[:n]); ok {
			return frame, nil
		}
	}
}

func (s *UDPSource) assemble(sender string, data []byte) (vision.Frame, bool) {
	buf, ok := s.buffers[sender]
	if !ok {
		buf = new(bytes.Buffer)
		s.buffers[sender] = buf
	}

	if bytes.HasPrefix(data, jpegHeader) {
		buf.Reset()
	}
	buf.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) {
		return vision.Frame{}, false
	}

	full := make([]byte, buf.Len())
	copy(full, buf.Bytes())
	buf.Reset()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(full))
	if err != nil {
		s.logger.Warning("Dropping malformed frame from %s: %v", sender, err)
		return vision.Frame{}, false
	}
	s.resMu.Lock()
	s.resolution = image.Pt(cfg.Width, cfg.Height)
	s.resMu.Unlock()

	s.index++
	return vision.Frame{
		Data:      full,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Index:     s.index,
		Timestamp: time.Now(),
	}, true
}

// Resolution returns the size of the most recent frame.
func (s *UDPSource) Resolution() image.Point {
	s.resMu.RLock()
	defer s.resMu.RUnlock()
	return s.resolution
}

// Close stops the source; a pending Read returns vision.ErrSourceClosed.
func (s *UDPSource) Close() error {
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
