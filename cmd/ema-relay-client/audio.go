package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-relay/core/audio"
	"github.com/koscakluka/ema-relay/core/audio/miniaudio"
)

const (
	frameDuration = miniaudio.DefaultFrameDuration
	micQueueSize  = 64
)

type audioSender interface {
	SendAudio(frame []byte) error
}

// startAudio streams either the file or the microphone to relay. The
// returned function stops streaming.
func startAudio(ctx context.Context, opts options, relay audioSender, send func(tea.Msg)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	if opts.file != "" {
		file, err := os.Open(opts.file)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open audio file: %w", err)
		}
		go func() {
			defer file.Close()
			if err := streamPaced(ctx, file, frameSize(opts.sampleRate), frameDuration, relay.SendAudio); err != nil {
				send(errMsg{err})
			}
		}()
		return cancel, nil
	}

	mic, err := miniaudio.Open(opts.sampleRate, frameDuration)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open microphone: %w", err)
	}

	frames := make(chan []byte, micQueueSize)
	if err := mic.Start(func(frame []byte) {
		select {
		case frames <- frame:
		default:
		}
	}); err != nil {
		mic.Close()
		cancel()
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-frames:
				if err := relay.SendAudio(frame); err != nil {
					send(errMsg{fmt.Errorf("failed to send audio: %w", err)})
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		_ = mic.Stop()
		mic.Close()
	}, nil
}

// frameSize is the byte length of one frame of 16-bit mono audio.
func frameSize(sampleRate int) int {
	return audio.NewLinear16EncodingInfo(sampleRate).FrameBytes(frameDuration)
}

// streamPaced sends r in chunks of size, one chunk per interval, so that a
// file is delivered at real-time speed.
func streamPaced(ctx context.Context, r io.Reader, size int, interval time.Duration, sendFrame func([]byte) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	buf := make([]byte, size)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			if sendErr := sendFrame(frame); sendErr != nil {
				return fmt.Errorf("failed to send audio: %w", sendErr)
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read audio file: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
