package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// CronLogger adapts zap to the robfig/cron logging interface.
type CronLogger struct {
	logger *zap.Logger
}

// NewCronLogger returns a cron.Logger backed by the provided zap logger.
func NewCronLogger(logger *zap.Logger) *CronLogger {
	return &CronLogger{logger: WithFields(logger).Named("cron")}
}

// Info logs routine scheduler messages at debug level.
func (c *CronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.Debug(msg, keyValueFields(keysAndValues)...)
}

// Error logs scheduler failures.
func (c *CronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := append(keyValueFields(keysAndValues), zap.Error(err))
	c.logger.Error(msg, fields...)
}

func keyValueFields(keysAndValues []any) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
