// Copyright (c) 2024-2026 HireflowAI
//
// Licensed under GPL-2.0 with Hireflow Additional Terms.
// See LICENSE.md or contact sales@hireflow.ai for commercial usage.
package internal_recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	internal_capture "github.com/hireflowai/api/interview-api/internal/capture"
	"github.com/hireflowai/pkg/commons"
)

const (
	AudioSampleRate     = 16000 // LINEAR16 internal recording rate
	AudioChannels       = 1
	AudioBytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	AudioBitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	AudioPCMFormat      = 1  // WAV PCM format tag
)

// ErrBufferStopped is returned by Append once Stop has been called. The
// uploader must never observe a buffer that is still being appended to.
var ErrBufferStopped = errors.New("recording buffer stopped")

// segment is a recorded media fragment placed at a specific position on the
// timeline. ByteOffset is the byte position relative to Start().
type segment struct {
	ByteOffset int
	Data       []byte
}

// Buffer accumulates capture output into timed segments. Segments arrive at a
// fixed cadence (roughly once per second) purely to bound memory and survive
// abrupt termination; nothing streams out of the buffer until Flush.
type Buffer struct {
	logger    commons.Logger
	mu        sync.Mutex
	startTime time.Time
	started   bool
	stopped   bool
	segments  []segment
	// cursor is the byte position just past the last written byte. Wall-clock
	// placement is used, but the cursor ensures segments never overlap when
	// delivery is bursty.
	cursor int
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// NewBuffer creates an empty recording buffer.
func NewBuffer(logger commons.Logger) *Buffer {
	return &Buffer{
		logger: logger,
		clock:  time.Now,
	}
}

// Start begins the recording timeline. Segments are placed based on when
// they arrive relative to this moment.
func (b *Buffer) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startTime = b.clock()
	b.started = true
}

func bytesPerSecond() int {
	return AudioSampleRate * AudioChannels * AudioBytesPerSample
}

// durationBytes converts a wall-clock duration to a frame-aligned byte count.
func durationBytes(d time.Duration) int {
	raw := int(d.Seconds() * float64(bytesPerSecond()))
	frameSize := AudioBytesPerSample * AudioChannels
	return (raw / frameSize) * frameSize
}

// Append places a capture segment at the current wall-clock position.
func (b *Buffer) Append(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrBufferStopped
	}

	offset := 0
	if b.started {
		offset = durationBytes(b.clock().Sub(b.startTime))
	}
	if b.cursor > offset {
		offset = b.cursor
	}

	// Copy to avoid caller mutations.
	buf := make([]byte, len(data))
	copy(buf, data)

	b.segments = append(b.segments, segment{ByteOffset: offset, Data: buf})
	b.cursor = offset + len(buf)
	return nil
}

// Stop halts further appends. Idempotent.
func (b *Buffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
}

// Len returns the number of collected segments.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.segments)
}

// Flush assembles the collected segments into a single artifact. Returns
// (nil, nil) when nothing was ever collected — skipping upload cleanly is
// the expected outcome for an empty session, not an error. For the WAV
// profile, segments are painted onto a zero-filled (silence) PCM timeline
// spanning the full session duration and wrapped in a RIFF header; for other
// profiles the segments are concatenated in order.
func (b *Buffer) Flush(profile internal_capture.Profile) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.stopped {
		return nil, errors.New("flush before stop")
	}
	if len(b.segments) == 0 {
		return nil, nil
	}

	if profile != internal_capture.ProfileWAV {
		var out bytes.Buffer
		for _, s := range b.segments {
			out.Write(s.Data)
		}
		return out.Bytes(), nil
	}

	// Total session duration in bytes, at least up to the furthest segment end.
	totalLen := 0
	if b.started {
		totalLen = durationBytes(b.clock().Sub(b.startTime))
	}
	for _, s := range b.segments {
		if end := s.ByteOffset + len(s.Data); end > totalLen {
			totalLen = end
		}
	}

	pcm := make([]byte, totalLen)
	audioBytes := 0
	for _, s := range b.segments {
		copy(pcm[s.ByteOffset:], s.Data)
		audioBytes += len(s.Data)
	}

	b.logger.Infof("recording flush: audio=%d (%.2fs), totalLen=%d (%.2fs), segments=%d",
		audioBytes, float64(audioBytes)/float64(bytesPerSecond()),
		totalLen, float64(totalLen)/float64(bytesPerSecond()),
		len(b.segments))

	return createWAVFile(pcm), nil
}

func createWAVFile(pcmData []byte) []byte {
	var buf bytes.Buffer
	bps := bytesPerSecond()

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcmData)))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioPCMFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(AudioSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(bps))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioBytesPerSample*AudioChannels))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioBitsPerSample))

	// data chunk
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcmData)))
	buf.Write(pcmData)

	return buf.Bytes()
}
