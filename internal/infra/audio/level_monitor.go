// Package audio computes real-time signal levels from raw PCM buffers.
package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// MaxChunkBytes bounds the retained visualization buffer.
const MaxChunkBytes = 4096

// SampleFormat describes the PCM layout of fed buffers.
// Width is bytes per sample: 1 (unsigned 8-bit), 2 (signed 16-bit
// little-endian) or 4 (signed 32-bit little-endian).
type SampleFormat struct {
	Width    int
	Channels int
}

// LevelMonitor derives an RMS level in [0,1] from every buffer written on
// the audio path and keeps the most recent chunk for visualization
// consumers. Feed is cheap enough to sit on the capture hot path.
type LevelMonitor struct {
	mu       sync.Mutex
	level    float64
	last     []byte
	onChange func(level float64)
}

func NewLevelMonitor() *LevelMonitor {
	return &LevelMonitor{}
}

// OnLevelChange registers a single listener invoked after every Feed.
// The callback runs on the feeding goroutine and must not block.
func (m *LevelMonitor) OnLevelChange(fn func(level float64)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Feed computes the RMS level of buf and records it together with a bounded
// copy of the chunk. Malformed or empty buffers yield level 0.0; there is
// no error path on purpose.
func (m *LevelMonitor) Feed(buf []byte, f SampleFormat) float64 {
	level := rms(buf, f.Width)

	keep := len(buf)
	if keep > MaxChunkBytes {
		keep = MaxChunkBytes
	}

	m.mu.Lock()
	m.level = level
	m.last = append(m.last[:0], buf[:keep]...)
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(level)
	}
	return level
}

// Level returns the most recently computed level.
func (m *LevelMonitor) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// LastChunk returns a copy of the most recently retained chunk.
func (m *LevelMonitor) LastChunk() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.last))
	copy(out, m.last)
	return out
}

func rms(buf []byte, width int) float64 {
	if len(buf) == 0 || width <= 0 {
		return 0
	}
	n := len(buf) / width
	if n == 0 {
		return 0
	}

	var sum float64
	switch width {
	case 2:
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(buf[i*2:]))
			v := float64(s) / 32768.0
			sum += v * v
		}
	case 4:
		for i := 0; i < n; i++ {
			s := int32(binary.LittleEndian.Uint32(buf[i*4:]))
			v := float64(s) / 2147483648.0
			sum += v * v
		}
	case 1:
		for i := 0; i < n; i++ {
			v := (float64(buf[i]) - 128.0) / 128.0
			sum += v * v
		}
	default:
		return 0
	}

	level := math.Sqrt(sum / float64(n))
	if level > 1 {
		level = 1
	}
	return level
}
