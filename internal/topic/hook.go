package topic

import (
	"sync/atomic"

	"github.com/danmuck/mqipc/internal/logging"
)

// ErrorHook receives subscriber and worker failures that have no caller to
// return to. Exactly one hook is active process-wide.
type ErrorHook func(topic string, err error)

var errorHook atomic.Value // ErrorHook

// SetErrorHook replaces the process-wide failure hook. Passing nil restores
// the default, which logs at warn level.
func SetErrorHook(fn ErrorHook) {
	if fn == nil {
		fn = logHook
	}
	errorHook.Store(fn)
}

func reportError(topic string, err error) {
	fn, _ := errorHook.Load().(ErrorHook)
	if fn == nil {
		fn = logHook
	}
	fn(topic, err)
}

func logHook(topic string, err error) {
	lg := logging.Component("topic")
	lg.Warn().Str("topic", topic).Err(err).Msg("subscriber failure")
}
