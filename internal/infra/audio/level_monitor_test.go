package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func square16(samples int, amplitude int16) []byte {
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func TestFeedZeroBuffer(t *testing.T) {
	m := NewLevelMonitor()
	for _, n := range []int{0, 2, 64, 4096, 9000} {
		buf := make([]byte, n)
		if got := m.Feed(buf, SampleFormat{Width: 2, Channels: 1}); got != 0.0 {
			t.Fatalf("all-zero buffer of %d bytes: level = %v, want 0.0", n, got)
		}
	}
}

func TestFeedFullScaleSquareWave(t *testing.T) {
	m := NewLevelMonitor()
	got := m.Feed(square16(1024, math.MaxInt16), SampleFormat{Width: 2, Channels: 1})
	if math.Abs(got-1.0) > 0.01 {
		t.Fatalf("full-scale square wave: level = %v, want ~1.0", got)
	}
}

func TestFeedHalfScale16(t *testing.T) {
	m := NewLevelMonitor()
	got := m.Feed(square16(1024, 16384), SampleFormat{Width: 2, Channels: 1})
	if math.Abs(got-0.5) > 0.01 {
		t.Fatalf("half-scale square wave: level = %v, want ~0.5", got)
	}
}

func TestFeedUnsigned8Bit(t *testing.T) {
	m := NewLevelMonitor()

	// 128 is silence for unsigned 8-bit PCM.
	silent := make([]byte, 256)
	for i := range silent {
		silent[i] = 128
	}
	if got := m.Feed(silent, SampleFormat{Width: 1, Channels: 1}); got != 0.0 {
		t.Fatalf("8-bit silence: level = %v, want 0.0", got)
	}

	loud := make([]byte, 256)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 255
		} else {
			loud[i] = 0
		}
	}
	got := m.Feed(loud, SampleFormat{Width: 1, Channels: 1})
	if math.Abs(got-1.0) > 0.02 {
		t.Fatalf("8-bit square wave: level = %v, want ~1.0", got)
	}
}

func TestFeedSigned32Bit(t *testing.T) {
	m := NewLevelMonitor()
	buf := make([]byte, 128*4)
	for i := 0; i < 128; i++ {
		v := int32(math.MaxInt32)
		if i%2 == 1 {
			v = math.MinInt32 + 1
		}
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	got := m.Feed(buf, SampleFormat{Width: 4, Channels: 1})
	if math.Abs(got-1.0) > 0.01 {
		t.Fatalf("32-bit square wave: level = %v, want ~1.0", got)
	}
}

func TestFeedMalformed(t *testing.T) {
	m := NewLevelMonitor()
	cases := []struct {
		name  string
		buf   []byte
		width int
	}{
		{"unsupported width", make([]byte, 12), 3},
		{"zero width", make([]byte, 12), 0},
		{"shorter than one sample", []byte{0x01}, 2},
		{"empty", nil, 2},
	}
	for _, tc := range cases {
		if got := m.Feed(tc.buf, SampleFormat{Width: tc.width, Channels: 1}); got != 0.0 {
			t.Errorf("%s: level = %v, want 0.0", tc.name, got)
		}
	}
}

func TestLastChunkBounded(t *testing.T) {
	m := NewLevelMonitor()
	big := square16(8192, 1000) // 16 KiB
	m.Feed(big, SampleFormat{Width: 2, Channels: 1})

	chunk := m.LastChunk()
	if len(chunk) != MaxChunkBytes {
		t.Fatalf("retained chunk = %d bytes, want %d", len(chunk), MaxChunkBytes)
	}
	// Mutating the returned slice must not affect the monitor's copy.
	chunk[0] ^= 0xFF
	if m.LastChunk()[0] == chunk[0] {
		t.Fatal("LastChunk returned a shared backing array")
	}
}

func TestOnLevelChange(t *testing.T) {
	m := NewLevelMonitor()
	var seen []float64
	m.OnLevelChange(func(l float64) { seen = append(seen, l) })

	m.Feed(make([]byte, 32), SampleFormat{Width: 2, Channels: 1})
	m.Feed(square16(32, math.MaxInt16), SampleFormat{Width: 2, Channels: 1})

	if len(seen) != 2 {
		t.Fatalf("listener invoked %d times, want 2", len(seen))
	}
	if seen[0] != 0.0 || seen[1] < 0.9 {
		t.Fatalf("listener levels = %v", seen)
	}
}
