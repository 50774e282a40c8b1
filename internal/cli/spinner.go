package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a status line with the elapsed time while a batch is
// drawn. It stops on its own when ctx is cancelled.
type Spinner struct {
	w       io.Writer
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	started bool
	start   time.Time

	mu      sync.Mutex
	message string
	width   int
}

// newSpinner returns a spinner writing to w, usually os.Stderr.
func newSpinner(parent context.Context, w io.Writer, message string) *Spinner {
	ctx, cancel := context.WithCancel(parent)
	return &Spinner{
		w:       w,
		parent:  parent,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		message: message,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.started = true
	s.start = time.Now()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.frame(i)
			}
		}
	}()
}

// Update replaces the message, e.g. with the index of the batch in flight.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

func (s *Spinner) frame(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := time.Since(s.start).Truncate(100 * time.Millisecond)
	text := fmt.Sprintf("%s %s", s.message, elapsed)
	s.width = max(s.width, len(text)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), StyleDim.Render(text))
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	}
}

// Stop ends the animation and clears the line. It is safe to call more
// than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		if s.started {
			<-s.stopped
		}
	})
}

// StopWithSuccess stops the spinner and prints message to out.
func (s *Spinner) StopWithSuccess(out *console, message string) {
	s.Stop()
	out.success("%s", message)
}

// StopWithError stops the spinner and prints message to out.
func (s *Spinner) StopWithError(out *console, message string) {
	s.Stop()
	out.fail("%s", message)
}

// Cancelled reports whether the parent context ended the spinner.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
