package ports

import "context"

// Completer produces a text completion for a prompt. Every failure is
// reported as an error wrapping domain.ErrRemote.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Pinger is a dependency whose health can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}
