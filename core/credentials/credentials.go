// Package credentials resolves the per-session provider keys.
//
// Every session merges the keys a caller supplied on connect with the
// process-wide fallbacks. Transcription, generation and synthesis keys are
// required; the search key only enables web-search augmented replies.
package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingEssential is matched by the error Resolve returns when a
// required key is absent.
var ErrMissingEssential = errors.New("missing essential credentials")

type Slot string

const (
	SlotTranscription Slot = "transcription"
	SlotGeneration    Slot = "generation"
	SlotSynthesis     Slot = "synthesis"
	SlotSearch        Slot = "search"
)

// Set holds one key per provider. An empty string means absent.
type Set struct {
	Transcription string
	Generation    string
	Synthesis     string
	Search        string
}

type MissingError struct {
	Missing []Slot
}

func (e *MissingError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, slot := range e.Missing {
		names = append(names, string(slot))
	}
	return fmt.Sprintf("%s: %s", ErrMissingEssential, strings.Join(names, ", "))
}

func (e *MissingError) Is(target error) bool { return target == ErrMissingEssential }

// Resolve picks the caller value for each slot when it is non-empty, the
// fallback otherwise. The resolved set is returned even on error so that
// callers can log what was present.
func Resolve(caller, fallback Set) (Set, error) {
	resolved := Set{
		Transcription: pick(caller.Transcription, fallback.Transcription),
		Generation:    pick(caller.Generation, fallback.Generation),
		Synthesis:     pick(caller.Synthesis, fallback.Synthesis),
		Search:        pick(caller.Search, fallback.Search),
	}

	var missing []Slot
	if resolved.Transcription == "" {
		missing = append(missing, SlotTranscription)
	}
	if resolved.Generation == "" {
		missing = append(missing, SlotGeneration)
	}
	if resolved.Synthesis == "" {
		missing = append(missing, SlotSynthesis)
	}
	if len(missing) > 0 {
		return resolved, &MissingError{Missing: missing}
	}

	return resolved, nil
}

func pick(caller, fallback string) string {
	if v := strings.TrimSpace(caller); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

// CanSearch reports whether search augmented replies are possible.
func (s Set) CanSearch() bool { return s.Search != "" }

// Present reports which slots hold a key, for health output and logs.
func (s Set) Present() map[Slot]bool {
	return map[Slot]bool{
		SlotTranscription: s.Transcription != "",
		SlotGeneration:    s.Generation != "",
		SlotSynthesis:     s.Synthesis != "",
		SlotSearch:        s.Search != "",
	}
}

// Redacted is safe to log: it keeps only the last four characters of each
// key.
func (s Set) Redacted() Set {
	return Set{
		Transcription: redact(s.Transcription),
		Generation:    redact(s.Generation),
		Synthesis:     redact(s.Synthesis),
		Search:        redact(s.Search),
	}
}

func redact(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// queryKeys lists the accepted query parameters per slot, generic name
// first. The vendor aliases match the names the browser client sends.
var queryKeys = map[Slot][]string{
	SlotTranscription: {"transcription_key", "assemblyai_key", "deepgram_key"},
	SlotGeneration:    {"generation_key", "gemini_key", "groq_key", "openai_key"},
	SlotSynthesis:     {"synthesis_key", "murf_key"},
	SlotSearch:        {"search_key", "serpapi_key", "tavily_key"},
}

// FromQuery reads per-connection overrides from connection query
// parameters.
func FromQuery(values url.Values) Set {
	lookup := func(slot Slot) string {
		for _, key := range queryKeys[slot] {
			if v := strings.TrimSpace(values.Get(key)); v != "" {
				return v
			}
		}
		return ""
	}

	return Set{
		Transcription: lookup(SlotTranscription),
		Generation:    lookup(SlotGeneration),
		Synthesis:     lookup(SlotSynthesis),
		Search:        lookup(SlotSearch),
	}
}
