package chain

import (
	"fmt"
	"time"
)

// Logger is the interface for logging filters.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// AuditFilter logs event entry and exit for debugging and audit trails.
// It is a capability object: register it once with kind Before and once
// with kind After.
type AuditFilter struct {
	event  string
	logger Logger
}

// NewAuditFilter creates an audit filter for the named event.
func NewAuditFilter(event string, logger Logger) *AuditFilter {
	return &AuditFilter{event: event, logger: logger}
}

// Before implements BeforeHandler. It logs chain entry and never halts.
func (a *AuditFilter) Before(c *Context) (any, error) {
	if a.logger != nil {
		a.logger.Debug("event start",
			"event", a.event,
			"target", targetName(c.Target),
		)
	}
	return true, nil
}

// After implements AfterHandler. It logs the run outcome.
func (a *AuditFilter) After(c *Context) error {
	if a.logger == nil {
		return nil
	}
	if c.Halted {
		a.logger.Info("event halted",
			"event", a.event,
			"target", targetName(c.Target),
		)
		return nil
	}
	a.logger.Debug("event complete",
		"event", a.event,
		"target", targetName(c.Target),
		"value", c.Value,
	)
	return nil
}

// TimingFilter measures how long the wrapped portion of the chain takes.
// It is an around capability object.
type TimingFilter struct {
	event  string
	logger Logger
}

// NewTimingFilter creates a timing filter for the named event.
func NewTimingFilter(event string, logger Logger) *TimingFilter {
	return &TimingFilter{event: event, logger: logger}
}

// Around implements AroundHandler.
func (t *TimingFilter) Around(c *Context, next Continuation) error {
	start := time.Now()
	_, err := next()
	if t.logger != nil {
		t.logger.Debug("event timing",
			"event", t.event,
			"target", targetName(c.Target),
			"elapsed", time.Since(start),
		)
	}
	return err
}

func targetName(target any) string {
	type named interface{ Name() string }
	if n, ok := target.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", target)
}
