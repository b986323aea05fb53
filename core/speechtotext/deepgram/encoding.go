package deepgram

import (
	"fmt"

	"github.com/koscakluka/ema-relay/core/audio"
)

type encodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

type encodingFormat string

func (e encodingFormat) Name() string { return string(e) }

const (
	encodingLinear16 encodingFormat = "linear16"
	encodingALaw     encodingFormat = "alaw"
	encodingMulaw    encodingFormat = "mulaw"
)

// convertEncoding maps an audio encoding onto the values accepted by the
// listen endpoint.
func convertEncoding(encoding audio.EncodingInfo) (encodingInfo, error) {
	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
	default:
		return encodingInfo{}, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	converted := encodingInfo{SampleRate: encoding.SampleRate}
	switch encoding.Format {
	case audio.EncodingLinear16:
		converted.Format = encodingLinear16
	case audio.EncodingALaw:
		converted.Format = encodingALaw
	case audio.EncodingMulaw:
		converted.Format = encodingMulaw
	default:
		return encodingInfo{}, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	if converted.Format != encodingLinear16 && converted.SampleRate != 8000 {
		return encodingInfo{}, fmt.Errorf("unsupported sample rate %d for %s encoding", converted.SampleRate, converted.Format)
	}

	return converted, nil
}
