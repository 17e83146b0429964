package notify

import "sync"

// Recorder keeps every toast in memory. Tests use it in place of Service.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Level: level, Message: msg})
}

// Toasts returns a copy of everything recorded so far.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Errors returns the messages of error toasts.
func (r *Recorder) Errors() []string {
	return r.messages(LevelError)
}

// Successes returns the messages of success toasts.
func (r *Recorder) Successes() []string {
	return r.messages(LevelSuccess)
}

func (r *Recorder) messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, t := range r.toasts {
		if t.Level == level {
			out = append(out, t.Message)
		}
	}
	return out
}

// Reset forgets recorded toasts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = nil
}
