package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ProgressSpinner shows a spinner with a counter while a batch runs.
type ProgressSpinner struct {
	mu      sync.Mutex
	message string
	frames  []string
	current int
	done    int
	total   int
	writer  io.Writer
	enabled bool
	started bool
	stop    chan struct{}
	stopped chan struct{}
}

// NewProgressSpinner creates a spinner writing to stderr. It draws nothing
// when stderr is not a terminal.
func NewProgressSpinner(message string, total int) *ProgressSpinner {
	return &ProgressSpinner{
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		total:   total,
		writer:  os.Stderr,
		enabled: isTerminal(os.Stderr),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the spinner animation
func (p *ProgressSpinner) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	if !p.enabled {
		close(p.stopped)
		return
	}
	go p.animate()
}

// Increment records one finished unit of work. Safe for concurrent use.
func (p *ProgressSpinner) Increment() {
	p.mu.Lock()
	p.done++
	p.mu.Unlock()
}

// Stop stops the spinner and clears its line.
func (p *ProgressSpinner) Stop() {
	select {
	case <-p.stop:
		return
	default:
		close(p.stop)
	}
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}
	<-p.stopped
	if p.enabled {
		fmt.Fprint(p.writer, "\r\033[K")
	}
}

func (p *ProgressSpinner) animate() {
	defer close(p.stopped)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			frame := p.frames[p.current%len(p.frames)]
			p.current++
			fmt.Fprintf(p.writer, "\r\033[36m%s\033[0m %s %d/%d", frame, p.message, p.done, p.total)
			p.mu.Unlock()
		case <-p.stop:
			return
		}
	}
}
