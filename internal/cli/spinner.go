package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinnerStyle  = lipgloss.NewStyle().Foreground(colorCyan)
)

// Spinner animates a status line on w while a plan is converted. The line
// follows the converter's beam progress.
type Spinner struct {
	w     io.Writer
	label string

	mu     sync.Mutex
	detail string
	width  int

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

// newSpinner creates a spinner that stops on its own when ctx ends.
func newSpinner(ctx context.Context, w io.Writer, label string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		label:   label,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			s.draw(spinnerFrames[i%len(spinnerFrames)])
			select {
			case <-s.ctx.Done():
				s.clear()
				return
			case <-ticker.C:
			}
		}
	}()
}

// Beam records that beam number is done, done of total. It matches
// convert.ProgressFunc.
func (s *Spinner) Beam(beam, done, total int) {
	s.mu.Lock()
	s.detail = fmt.Sprintf("beam %d (%d/%d)", beam, done, total)
	s.mu.Unlock()
}

// Stop ends the animation and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
	})
}

// Fail stops the spinner and prints msg as an error.
func (s *Spinner) Fail(msg string) {
	s.Stop()
	printError("%s", msg)
}

func (s *Spinner) line() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == "" {
		return s.label
	}
	return s.label + " " + s.detail
}

func (s *Spinner) draw(frame string) {
	text := s.line()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s %s", spinnerStyle.Render(frame), StyleDim.Render(text))
	s.width = max(s.width, len(text)+2)
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
}
