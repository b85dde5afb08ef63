package capture

import (
	"io"

	"github.com/tempoflow/tempo/capture/internal/sink"
)

// Sink receives every raw event capture emits, in addition to the
// Session.Events() channel C2-C4 consume. Use AddSink before Start to
// observe the stream without a second consumer reading Events() (which
// only has one reader — the session pipeline).
type Sink = sink.Sink

// RawEventFunc is the callback signature for NewCallbackSink.
type RawEventFunc = sink.RawEventFunc

// NewStdoutSink writes each raw event as a JSON line to w (os.Stdout if
// nil) — a debug aid for `tempo start`'s -debug-sink flag.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewCallbackSink delivers raw events via an in-process function call
// with zero serialization, for a host UI embedding tempo as a library.
func NewCallbackSink(fn RawEventFunc) Sink {
	return sink.NewCallback(fn)
}

// AddSink registers s to receive every raw event alongside the Events()
// channel. Must be called before Start.
func (s *Session) AddSink(sk Sink) {
	s.sinks.Add(sk)
}
