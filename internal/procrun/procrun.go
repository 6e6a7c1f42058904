// Package procrun runs child processes with a deadline and delivers their
// output as a bounded stream of lines.
package procrun

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxLineBytes = 64 * 1024
	defaultBuffer       = 64
	waitDelay           = 2 * time.Second
)

// ErrTimeout is returned when a process outlives Runner.Timeout.
var ErrTimeout = errors.New("process timed out")

// Stream identifies which pipe a line was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Line is one line of child output, without its trailing newline.
type Line struct {
	Stream Stream
	Text   string
}

// ExitError reports a non-zero exit status.
type ExitError struct {
	Args []string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", strings.Join(e.Args, " "), e.Code)
}

// Runner starts child processes.
type Runner struct {
	// Timeout bounds the whole run. Zero means no deadline beyond the caller's context.
	Timeout time.Duration
	// MaxLineBytes caps a single line; longer lines are split.
	MaxLineBytes int
	// Buffer is the capacity of the line channel.
	Buffer int
	// Env is appended to the parent's environment.
	Env []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// Process is a started child process.
type Process struct {
	args   []string
	cmd    *exec.Cmd
	lines  chan Line
	ctx    context.Context
	cancel context.CancelFunc

	readErrMu sync.Mutex
	readErr   error
}

// Start launches argv[0] with the remaining arguments.
// The caller must drain Lines until it is closed and then call Wait.
func (r *Runner) Start(ctx context.Context, argv []string) (*Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	var cancel context.CancelFunc
	if r.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	buffer := r.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	p := &Process{
		args:   argv,
		cmd:    cmd,
		lines:  make(chan Line, buffer),
		ctx:    ctx,
		cancel: cancel,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go p.scan(&wg, stdout, Stdout, r.maxLineBytes())
	go p.scan(&wg, stderr, Stderr, r.maxLineBytes())
	go func() {
		wg.Wait()
		close(p.lines)
	}()

	return p, nil
}

func (r *Runner) maxLineBytes() int {
	if r.MaxLineBytes <= 0 {
		return defaultMaxLineBytes
	}
	return r.MaxLineBytes
}

func (p *Process) scan(wg *sync.WaitGroup, rd io.Reader, stream Stream, maxLine int) {
	defer wg.Done()

	br := bufio.NewReaderSize(rd, maxLine)
	for {
		line, isPrefix, err := br.ReadLine()
		if len(line) > 0 || (err == nil && !isPrefix) {
			select {
			case p.lines <- Line{Stream: stream, Text: strings.TrimRight(string(line), "\r")}:
			case <-p.ctx.Done():
				// Cancelled: drop the line but keep reading until the pipe closes.
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, os.ErrClosed) {
				p.setReadErr(fmt.Errorf("reading %s: %w", stream, err))
			}
			return
		}
	}
}

func (p *Process) setReadErr(err error) {
	p.readErrMu.Lock()
	defer p.readErrMu.Unlock()
	if p.readErr == nil {
		p.readErr = err
	}
}

// Lines returns the output stream. It is closed once both pipes reach EOF.
func (p *Process) Lines() <-chan Line {
	return p.lines
}

// Wait waits for the process to exit. A non-zero exit is an *ExitError,
// a missed deadline wraps ErrTimeout and a cancelled context wraps its error.
func (p *Process) Wait() error {
	defer p.cancel()

	err := p.cmd.Wait()
	if ctxErr := p.ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", p.args[0], ErrTimeout)
		}
		return fmt.Errorf("%s: %w", p.args[0], ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Args: p.args, Code: exitErr.ExitCode()}
	}
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", p.args[0], err)
	}

	p.readErrMu.Lock()
	defer p.readErrMu.Unlock()
	return p.readErr
}

// Run starts argv and calls fn for every output line on the caller's
// goroutine, then waits for the process to exit.
func (r *Runner) Run(ctx context.Context, argv []string, fn func(Line)) error {
	p, err := r.Start(ctx, argv)
	if err != nil {
		return err
	}
	if fn == nil {
		fn = func(Line) {}
	}

	for {
		select {
		case line, ok := <-p.lines:
			if !ok {
				return p.Wait()
			}
			fn(line)
		case <-p.ctx.Done():
			// The child has been killed; Wait closes the pipes so the readers finish.
			err := p.Wait()
			for line := range p.lines {
				fn(line)
			}
			return err
		}
	}
}
