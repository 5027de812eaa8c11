package render

import "sync"

// Recorder is a Sink that keeps every command it receives.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

func (r *Recorder) Emit(c Command) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Count returns how many commands of op were recorded, optionally limited to
// one target id.
func (r *Recorder) Count(op Op, id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.commands {
		if c.Op == op && (id == "" || c.ID == id) {
			n++
		}
	}
	return n
}

// Filter returns the recorded commands of op.
func (r *Recorder) Filter(op Op) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Command
	for _, c := range r.commands {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}
