package schedule

import (
	"github.com/compozy/triggers/pkg/logger"
	"github.com/robfig/cron/v3"
)

// cronLogger routes the cron runner's own messages into our logger.
type cronLogger struct {
	log logger.Logger
}

var _ cron.Logger = (*cronLogger)(nil)

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
