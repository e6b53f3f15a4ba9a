package task

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// LockStore is a keyed lock store with expiry, used by overlap prevention.
// The stored value is opaque: only presence matters.
type LockStore interface {
	Has(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LockAcquirer is implemented by lock stores that can check and take a
// lock in one atomic step. Acquire reports false when key is already held.
type LockAcquirer interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// HTTPDoer sends HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Message is an outgoing mail.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
}

// Mailer delivers mail.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Executed is the outcome of a console command.
type Executed struct {
	Code   int
	Output string
}

// Commander runs named console commands.
type Commander interface {
	Execute(ctx context.Context, command string, input map[string]string) (Executed, error)
}

// CommanderFunc adapts a function to Commander.
type CommanderFunc func(ctx context.Context, command string, input map[string]string) (Executed, error)

// Execute implements Commander.
func (f CommanderFunc) Execute(ctx context.Context, command string, input map[string]string) (Executed, error) {
	return f(ctx, command, input)
}

// Env is the execution context handed to every body and handler. Fields a
// task does not need may stay nil.
type Env struct {
	Logger   *slog.Logger
	Locks    LockStore
	HTTP     HTTPDoer
	Mailer   Mailer
	Commands Commander

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// WithDefaults returns a copy of e with Logger, HTTP and Now filled in.
// A nil receiver yields a fresh default environment.
func (e *Env) WithDefaults() *Env {
	out := Env{}
	if e != nil {
		out = *e
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.HTTP == nil {
		out.HTTP = http.DefaultClient
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}

// Time returns the current time according to e.
func (e *Env) Time() time.Time {
	if e == nil || e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
