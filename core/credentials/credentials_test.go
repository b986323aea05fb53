package credentials

import (
	"errors"
	"net/url"
	"testing"
)

func TestResolvePrefersCallerThenFallback(t *testing.T) {
	resolved, err := Resolve(
		Set{Transcription: "caller-stt", Search: "  "},
		Set{Transcription: "env-stt", Generation: "env-llm", Synthesis: "env-tts", Search: "env-search"},
	)
	if err != nil {
		t.Fatalf("expected complete set, got %v", err)
	}

	expected := Set{Transcription: "caller-stt", Generation: "env-llm", Synthesis: "env-tts", Search: "env-search"}
	if resolved != expected {
		t.Fatalf("expected %+v, got %+v", expected, resolved)
	}
}

func TestResolveReportsEveryMissingEssentialSlot(t *testing.T) {
	_, err := Resolve(Set{Generation: "llm"}, Set{})
	if !errors.Is(err, ErrMissingEssential) {
		t.Fatalf("expected ErrMissingEssential, got %v", err)
	}

	var missingErr *MissingError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected *MissingError, got %T", err)
	}
	if len(missingErr.Missing) != 2 ||
		missingErr.Missing[0] != SlotTranscription ||
		missingErr.Missing[1] != SlotSynthesis {
		t.Fatalf("expected transcription and synthesis missing, got %v", missingErr.Missing)
	}
}

func TestResolveTreatsMissingSearchAsNonFatal(t *testing.T) {
	resolved, err := Resolve(Set{Transcription: "a", Generation: "b", Synthesis: "c"}, Set{})
	if err != nil {
		t.Fatalf("expected search absence to be tolerated, got %v", err)
	}
	if resolved.CanSearch() {
		t.Fatalf("expected search to be disabled")
	}
}

func TestFromQueryAcceptsGenericAndVendorNames(t *testing.T) {
	values := url.Values{}
	values.Set("assemblyai_key", "aai")
	values.Set("gemini_key", "gem")
	values.Set("generation_key", "generic")
	values.Set("murf_key", "murf")

	set := FromQuery(values)

	if set.Transcription != "aai" {
		t.Fatalf("expected vendor alias to populate transcription, got %q", set.Transcription)
	}
	if set.Generation != "generic" {
		t.Fatalf("expected generic name to win, got %q", set.Generation)
	}
	if set.Synthesis != "murf" || set.Search != "" {
		t.Fatalf("unexpected synthesis/search values %+v", set)
	}
}

func TestRedactedHidesKeys(t *testing.T) {
	redacted := Set{Transcription: "abcdefgh", Generation: "abc"}.Redacted()

	if redacted.Transcription != "****efgh" {
		t.Fatalf("expected suffix-only redaction, got %q", redacted.Transcription)
	}
	if redacted.Generation != "****" {
		t.Fatalf("expected short keys to be fully hidden, got %q", redacted.Generation)
	}
	if redacted.Synthesis != "" {
		t.Fatalf("expected absent keys to stay empty, got %q", redacted.Synthesis)
	}
}
