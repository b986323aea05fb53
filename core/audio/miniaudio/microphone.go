// Package miniaudio captures microphone audio as mono linear16 PCM.
package miniaudio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-relay/core/audio"
)

const (
	DefaultFrameDuration = 100 * time.Millisecond

	// Device periods of 30ms, three deep.
	periodDuration = 30 * time.Millisecond
	periods        = 3
)

var ErrNotOpen = errors.New("microphone is not open")

// Microphone delivers captured audio in frames of a fixed duration. Device
// periods are smaller than a frame, so samples are accumulated until a
// whole frame is available.
type Microphone struct {
	encoding audio.EncodingInfo
	frame    *frameAccumulator

	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	onFrame atomic.Pointer[func(frame []byte)]

	mu        sync.Mutex
	closeOnce sync.Once
}

// Open initialises the default capture device. A zero sampleRate or
// frameDuration falls back to the package defaults.
func Open(sampleRate int, frameDuration time.Duration) (*Microphone, error) {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	if frameDuration <= 0 {
		frameDuration = DefaultFrameDuration
	}

	mic := &Microphone{encoding: audio.NewLinear16EncodingInfo(sampleRate)}
	mic.frame = newFrameAccumulator(mic.encoding.FrameBytes(frameDuration))

	audioContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	mic.audioContext = audioContext

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(sampleRate)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = uint32(mic.encoding.FrameBytes(periodDuration) / mic.encoding.Format.ByteSize())
	config.Periods = periods

	mic.device, err = malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := int(frameCount) * mic.encoding.Format.ByteSize()
			if n == 0 || len(input) < n {
				return
			}
			onFrame := mic.onFrame.Load()
			if onFrame == nil {
				return
			}
			mic.frame.write(input[:n], *onFrame)
		},
	})
	if err != nil {
		mic.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return mic, nil
}

// Start delivers frames to onFrame until Stop. Frames are fresh slices and
// may be retained.
func (m *Microphone) Start(onFrame func(frame []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return ErrNotOpen
	}
	if m.device.IsStarted() {
		return nil
	}

	m.onFrame.Store(&onFrame)
	if err := m.device.Start(); err != nil {
		m.onFrame.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

// Stop pauses capture. A partial frame is discarded.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return ErrNotOpen
	}
	if !m.device.IsStarted() {
		return nil
	}

	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	m.onFrame.Store(nil)
	m.frame.reset()
	return nil
}

// Close releases the device and the audio context. It is safe to call more
// than once.
func (m *Microphone) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.onFrame.Store(nil)
		if m.device != nil {
			m.device.Uninit()
			m.device = nil
		}
		if m.audioContext != nil {
			_ = m.audioContext.Uninit()
			m.audioContext.Free()
			m.audioContext = nil
		}
	})
}

func (m *Microphone) EncodingInfo() audio.EncodingInfo {
	return m.encoding
}

// frameAccumulator cuts a byte stream into frames of exactly size bytes.
type frameAccumulator struct {
	size int

	mu      sync.Mutex
	pending []byte
}

func newFrameAccumulator(size int) *frameAccumulator {
	return &frameAccumulator{size: size, pending: make([]byte, 0, size)}
}

func (a *frameAccumulator) write(samples []byte, emit func([]byte)) {
	a.mu.Lock()
	a.pending = append(a.pending, samples...)
	var frames [][]byte
	for a.size > 0 && len(a.pending) >= a.size {
		frame := make([]byte, a.size)
		copy(frame, a.pending[:a.size])
		frames = append(frames, frame)
		a.pending = append(a.pending[:0], a.pending[a.size:]...)
	}
	a.mu.Unlock()

	for _, frame := range frames {
		emit(frame)
	}
}

func (a *frameAccumulator) reset() {
	a.mu.Lock()
	a.pending = a.pending[:0]
	a.mu.Unlock()
}
