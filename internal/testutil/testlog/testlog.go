package testlog

import (
	"testing"

	"github.com/danmuck/mqipc/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	lg := logging.Component("test")
	lg.Debug().Str("test", t.Name()).Msg("start")
}
