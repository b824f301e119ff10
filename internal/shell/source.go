package shell

import (
	"bufio"
	"io"

	"github.com/smazurov/jobsh/internal/logging"
)

const maxLineLength = 1 << 20

// ReaderSource delivers lines read from r on a channel, which is closed at
// end of input. Reading happens on its own goroutine so the run loop and
// the foreground waiter can select on input alongside signals.
type ReaderSource struct {
	lines chan string
}

// NewReaderSource starts reading r.
func NewReaderSource(r io.Reader, logger logging.Logger) *ReaderSource {
	s := &ReaderSource{lines: make(chan string)}
	go s.read(r, logger)
	return s
}

// Lines returns the line channel.
func (s *ReaderSource) Lines() <-chan string {
	return s.lines
}

func (s *ReaderSource) read(r io.Reader, logger logging.Logger) {
	defer close(s.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("Input read failed", "error", err)
	}
}
