// Package term hosts one supervised interactive child process per project
// inside a pseudo-terminal and relays its raw input/output.
package term

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	creackpty "github.com/creack/pty"
	"github.com/kballard/go-shellquote"
	"golang.org/x/sys/unix"
)

// State tracks the session lifecycle. Transitions are monotonic:
// Idle -> Starting -> Running -> Closing -> Closed, with a direct
// Starting -> Closed shortcut when the spawn fails.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	defaultRows = 24
	defaultCols = 80

	// closeGrace is how long Close waits for the child to exit after
	// SIGTERM before escalating to SIGKILL.
	closeGrace = 2 * time.Second
)

// Session wraps a child process running inside a PTY for one project.
type Session struct {
	projectID      string
	workDir        string
	defaultCommand string

	mu         sync.Mutex
	state      State
	cmd        *exec.Cmd
	ptmx       *os.File
	pid        int
	rows       uint16
	cols       uint16
	createdAt  time.Time
	lastActive time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession constructs an Idle session. defaultCommand is used by Start
// when the caller does not supply an explicit command; it is expected to
// be already resolved (e.g. the user's shell or an agent launch command).
func NewSession(projectID, workDir, defaultCommand string) *Session {
	return &Session{
		projectID:      projectID,
		workDir:        workDir,
		defaultCommand: defaultCommand,
		state:          StateIdle,
		rows:           defaultRows,
		cols:           defaultCols,
		createdAt:      time.Now(),
		lastActive:     time.Now(),
	}
}

// ProjectID returns the owning project identifier.
func (s *Session) ProjectID() string { return s.projectID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the child process id, or 0 before a successful Start.
func (s *Session) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// CreatedAt returns the session construction time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActive returns the time of the last input or output.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Start allocates a PTY pair, spawns command (or the session's default when
// command is empty) with its standard streams bound to the secondary end,
// and places the child in its own process group so terminal signals reach
// the whole group. On failure the session transitions straight to Closed
// and all partially acquired fds are released.
func (s *Session) Start(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStarting, StateRunning:
		return "", fmt.Errorf("term: session %q already started", s.projectID)
	case StateClosing, StateClosed:
		return "", fmt.Errorf("term: session %q is closed", s.projectID)
	}
	s.state = StateStarting

	if command == "" {
		command = s.defaultCommand
	}
	argv := splitCommand(command)
	if len(argv) == 0 {
		s.state = StateClosed
		return "", &SpawnError{Command: command, Err: fmt.Errorf("empty command")}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.workDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	// StartWithSize opens the pair, applies the window size, wires the
	// child's stdio to the secondary end and runs it with Setsid+Setctty,
	// releasing both fds itself if anything fails.
	ptmx, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{
		Rows: s.rows,
		Cols: s.cols,
	})
	if err != nil {
		s.state = StateClosed
		return "", &SpawnError{Command: command, Err: err}
	}

	s.cmd = cmd
	s.ptmx = ptmx
	s.pid = cmd.Process.Pid
	s.done = make(chan struct{})
	s.state = StateRunning
	s.lastActive = time.Now()

	go func() {
		_ = cmd.Wait()
		close(s.done)
	}()

	return s.projectID, nil
}

// Input writes raw bytes to the PTY primary end. A write failure demotes
// the session toward Closed since the fd is no longer usable.
func (s *Session) Input(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning || s.ptmx == nil {
		return ErrNotStarted
	}
	if _, err := s.ptmx.Write(data); err != nil {
		s.state = StateClosing
		return &IOError{Op: "write", Err: err}
	}
	s.lastActive = time.Now()
	return nil
}

// Resize updates the kernel window size and notifies the child's process
// group with SIGWINCH so full-screen programs redraw. A dead child is
// tolerated: the error comes back as a non-fatal IOError and the session
// state is left untouched.
func (s *Session) Resize(rows, cols uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ptmx == nil {
		return ErrNotStarted
	}
	if err := creackpty.Setsize(s.ptmx, &creackpty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return &IOError{Op: "resize", Err: err}
	}
	s.rows = rows
	s.cols = cols
	if s.pid > 0 {
		if err := unix.Kill(-s.pid, unix.SIGWINCH); err != nil {
			return &IOError{Op: "sigwinch", Err: err}
		}
	}
	return nil
}

// IsAlive reports whether a child process exists and has not exited.
func (s *Session) IsAlive() bool {
	s.mu.Lock()
	done := s.done
	started := s.cmd != nil
	s.mu.Unlock()

	if !started || done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Close terminates the child gracefully (SIGTERM to the process group,
// bounded wait) and escalates to SIGKILL if it is still alive. The PTY fd
// is always released regardless of process state. Close is idempotent:
// repeated calls succeed with no further side effects.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.state == StateIdle {
			s.state = StateClosed
			s.mu.Unlock()
			return
		}
		s.state = StateClosing
		pid := s.pid
		done := s.done
		ptmx := s.ptmx
		s.mu.Unlock()

		if pid > 0 && done != nil {
			select {
			case <-done:
				// Already exited; nothing to signal.
			default:
				_ = unix.Kill(-pid, unix.SIGTERM)
				select {
				case <-done:
				case <-time.After(closeGrace):
					_ = unix.Kill(-pid, unix.SIGKILL)
					select {
					case <-done:
					case <-time.After(closeGrace):
					}
				}
			}
		}

		if ptmx != nil {
			_ = ptmx.Close()
		}

		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
	})
	return nil
}

// splitCommand turns a command string into argv. Commands with shell
// metacharacters run under "sh -c" so pipelines and expansions keep their
// meaning; plain commands are tokenized with shell quoting rules.
func splitCommand(command string) []string {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}
	if strings.ContainsAny(command, "\n|&;$`<>") {
		return []string{"sh", "-c", command}
	}
	argv, err := shellquote.Split(command)
	if err != nil {
		return []string{"sh", "-c", command}
	}
	return argv
}
