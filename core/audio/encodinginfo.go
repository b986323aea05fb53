package audio

import (
	"fmt"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

// NewLinear16EncodingInfo describes mono 16-bit PCM at the given sample
// rate, the only input format the relay accepts from clients.
func NewLinear16EncodingInfo(sampleRate int) EncodingInfo {
	return EncodingInfo{SampleRate: sampleRate, Format: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) Validate() error {
	if e.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", e.SampleRate)
	}
	if e.Format.ByteSize() < 0 {
		return fmt.Errorf("unsupported encoding %q", e.Format.Name())
	}
	return nil
}

// FrameBytes is the size of d worth of audio, rounded down to whole
// samples.
func (e EncodingInfo) FrameBytes(d time.Duration) int {
	size := e.Format.ByteSize()
	if size <= 0 || d <= 0 {
		return 0
	}
	samples := int(int64(e.SampleRate) * int64(d) / int64(time.Second))
	return samples * size
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
