package term

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const readChunkSize = 4096

// Pump drains a session's PTY output and hands each chunk to a sink.
// One pump runs per active session; pumps for different sessions never
// share state, so a stuck or failed session cannot stall the others.
type Pump struct {
	session *Session
	sink    func(chunk string)

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewPump wires a pump to a session. sink receives output chunks decoded
// as UTF-8 with invalid sequences replaced, in the order they were read.
func NewPump(session *Session, sink func(chunk string)) *Pump {
	return &Pump{
		session: session,
		sink:    sink,
		stopped: make(chan struct{}),
	}
}

// Run reads from the PTY until the child exits, the fd fails, or ctx is
// cancelled. Reads suspend in the runtime poller, so cancellation takes
// effect by closing the fd (via Session.Close) which unblocks the read.
// Run never panics into its caller: EOF and read errors just end the loop
// and demote the session.
func (p *Pump) Run(ctx context.Context) {
	defer p.stopOnce.Do(func() { close(p.stopped) })

	go func() {
		select {
		case <-ctx.Done():
			// Closing the session releases the fd, which errors out any
			// in-flight read below.
			_ = p.session.Close()
		case <-p.stopped:
		}
	}()

	buf := make([]byte, readChunkSize)
	for {
		p.session.mu.Lock()
		ptmx := p.session.ptmx
		p.session.mu.Unlock()
		if ptmx == nil {
			return
		}

		n, err := ptmx.Read(buf)
		if n > 0 {
			chunk := strings.ToValidUTF8(string(buf[:n]), "�")
			p.session.mu.Lock()
			p.session.lastActive = time.Now()
			p.session.mu.Unlock()
			p.sink(chunk)
		}
		if err != nil {
			// EOF after the child exits, or EIO once the secondary end is
			// gone. Either way the session is finished producing output, so
			// reap the child and release the primary fd here rather than
			// waiting for an explicit close that may never come.
			slog.Debug("output pump stopped",
				"project", p.session.projectID, "error", err)
			_ = p.session.Close()
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Done returns a channel closed when the pump loop has exited.
func (p *Pump) Done() <-chan struct{} { return p.stopped }
