package process

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

const readChunkSize = 32 * 1024

// chunkBuffer accumulates stream chunks in arrival order.
// It has a single writer (the collector goroutine); readers must wait for
// the collector to finish first.
type chunkBuffer struct {
	chunks [][]byte
	size   int
}

func (b *chunkBuffer) append(p []byte) {
	chunk := make([]byte, len(p))
	copy(chunk, p)
	b.chunks = append(b.chunks, chunk)
	b.size += len(p)
}

// Len returns the total number of bytes collected.
func (b *chunkBuffer) Len() int { return b.size }

// String concatenates all chunks.
func (b *chunkBuffer) String() string {
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return string(out)
}

// invocation is one spawned child and its private output buffers.
type invocation struct {
	cmd       *exec.Cmd
	args      []string
	pid       int
	startedAt time.Time
	stdout    chunkBuffer
	stderr    chunkBuffer

	// collectors completes once every piped output stream hit EOF.
	collectors sync.WaitGroup
}

// pipedStream is an output pipe paired with the buffer it feeds.
type pipedStream struct {
	source string
	reader io.Reader
	buf    *chunkBuffer
}

// startCollectors reads every piped stream in its own goroutine.
func (inv *invocation) startCollectors(streams []pipedStream, logger *slog.Logger) {
	inv.collectors.Add(len(streams))
	for _, s := range streams {
		go func() {
			defer inv.collectors.Done()
			collect(s.reader, s.buf, s.source, logger)
		}()
	}
}

// collect appends every chunk read from r to buf until EOF.
func collect(r io.Reader, buf *chunkBuffer, source string, logger *slog.Logger) {
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.append(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				logger.Warn("Error reading output", "source", source, "error", err)
			}
			return
		}
	}
}

// writeInput writes input to the child's stdin and closes it right after.
func writeInput(stdin io.WriteCloser, input string, logger *slog.Logger) {
	if _, err := io.WriteString(stdin, input); err != nil {
		// The child may exit without reading its input.
		logger.Debug("Failed to write stdin", "error", err)
	}
	if err := stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Debug("Failed to close stdin", "error", err)
	}
}
