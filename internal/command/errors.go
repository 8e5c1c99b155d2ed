package command

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDisabled         = errors.New("command is disabled")
	ErrNotOwner         = errors.New("command is restricted to bot owners")
	ErrCheckFailure     = errors.New("permission check failed")
	ErrCommandNotFound  = errors.New("command not found")
	ErrMissingArgument  = errors.New("missing required argument")
	ErrNoPrivateMessage = errors.New("command cannot be used in private messages")
	ErrBadArgument      = errors.New("bad argument")
)

// CooldownError is returned while a user is rate limited for a command.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("command on cooldown, retry in %.2fs", e.RetryAfter.Seconds())
}

// Missing returns ErrMissingArgument naming the argument.
func Missing(arg string) error {
	return fmt.Errorf("%w: %s", ErrMissingArgument, arg)
}

// BadArgument returns ErrBadArgument with a reason.
func BadArgument(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrBadArgument, fmt.Sprintf(format, a...))
}

// Kind is the class an error reply is chosen by.
type Kind int

const (
	KindInternal Kind = iota
	KindDisabled
	KindNotOwner
	KindCheckFailure
	KindNotFound
	KindMissingArgument
	KindNoPrivateMessage
	KindBadArgument
	KindCooldown
)

func (k Kind) String() string {
	switch k {
	case KindDisabled:
		return "DisabledCommand"
	case KindNotOwner:
		return "NotOwner"
	case KindCheckFailure:
		return "CheckFailure"
	case KindNotFound:
		return "CommandNotFound"
	case KindMissingArgument:
		return "MissingRequiredArgument"
	case KindNoPrivateMessage:
		return "NoPrivateMessage"
	case KindBadArgument:
		return "BadArgument"
	case KindCooldown:
		return "CommandOnCooldown"
	default:
		return "CommandInvokeError"
	}
}

// Classify maps err to its Kind. Unknown errors are KindInternal.
func Classify(err error) Kind {
	var cd *CooldownError
	switch {
	case errors.As(err, &cd):
		return KindCooldown
	case errors.Is(err, ErrDisabled):
		return KindDisabled
	case errors.Is(err, ErrNotOwner):
		return KindNotOwner
	case errors.Is(err, ErrCheckFailure):
		return KindCheckFailure
	case errors.Is(err, ErrCommandNotFound):
		return KindNotFound
	case errors.Is(err, ErrMissingArgument):
		return KindMissingArgument
	case errors.Is(err, ErrNoPrivateMessage):
		return KindNoPrivateMessage
	case errors.Is(err, ErrBadArgument):
		return KindBadArgument
	default:
		return KindInternal
	}
}

// Denied reports whether err means the author was not allowed to run the
// command at all.
func Denied(err error) bool {
	switch Classify(err) {
	case KindNotOwner, KindCheckFailure:
		return true
	}
	return false
}
