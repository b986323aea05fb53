// Command ema-relay-client is a terminal client for the relay. It streams
// microphone audio, or a raw PCM file, and saves every spoken reply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

type options struct {
	url        string
	file       string
	outDir     string
	extension  string
	sampleRate int
	keys       map[string]*string
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("ema-relay-client", flag.ContinueOnError)
	opts := options{keys: map[string]*string{}}
	fs.StringVar(&opts.url, "url", "ws://localhost:8000/ws", "relay WebSocket URL")
	fs.StringVar(&opts.file, "file", "", "stream this raw 16-bit mono PCM file instead of the microphone")
	fs.StringVar(&opts.outDir, "out", ".", "directory replies are written to")
	fs.StringVar(&opts.extension, "ext", "mp3", "file extension of saved replies")
	fs.IntVar(&opts.sampleRate, "rate", 16000, "sample rate of the streamed audio")
	opts.keys["transcription_key"] = fs.String("transcription-key", "", "transcription API key override")
	opts.keys["generation_key"] = fs.String("generation-key", "", "generation API key override")
	opts.keys["synthesis_key"] = fs.String("synthesis-key", "", "synthesis API key override")
	opts.keys["search_key"] = fs.String("search-key", "", "search API key override")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.sampleRate <= 0 {
		return options{}, fmt.Errorf("rate must be positive, got %d", opts.sampleRate)
	}
	return opts, nil
}

// endpoint adds the non-empty key overrides to the relay URL.
func (o options) endpoint() (string, error) {
	u, err := url.Parse(o.url)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", o.url, err)
	}
	query := u.Query()
	for name, value := range o.keys {
		if value != nil && *value != "" {
			query.Set(name, *value)
		}
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	endpoint, err := opts.endpoint()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.url, err)
	}
	relay := newRelayConn(conn)
	defer relay.Close()

	source := "microphone"
	if opts.file != "" {
		source = opts.file
	}
	program := tea.NewProgram(newModel(opts.url, source), tea.WithAltScreen(), tea.WithContext(ctx))

	replies := newReplyWriter(opts.outDir, opts.extension)
	go relay.receive(replies, program.Send)

	stopAudio, err := startAudio(ctx, opts, relay, program.Send)
	if err != nil {
		return err
	}
	defer stopAudio()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
