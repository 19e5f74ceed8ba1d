// Package health keeps track of component health and runs bounded recovery
// for the components that fail their checks.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-interview/core/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrUnknownComponent = errors.New("unknown component")

type (
	CheckFunc   func(ctx context.Context) error
	RecoverFunc func(ctx context.Context) error
)

// Record is the health of one component as of its last check.
type Record struct {
	Name     string
	Required bool
	Healthy  bool

	LastCheck time.Time
	LastError error
	// RecoveryAttempts counts recovery attempts since the component was last
	// healthy.
	RecoveryAttempts int
}

type component struct {
	check   CheckFunc
	options componentOptions

	record      Record
	lastAttempt time.Time
}

// Ledger holds the health records of registered components. Checks run on
// [Ledger.CheckNow] and periodically from [Ledger.Run].
type Ledger struct {
	options LedgerOptions

	mu         sync.Mutex
	components map[string]*component
	order      []string

	now func() time.Time
}

func NewLedger(opts ...LedgerOption) *Ledger {
	options := defaultLedgerOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Ledger{
		options:    options,
		components: map[string]*component{},
		now:        time.Now,
	}
}

// Register adds a component. It stays unhealthy until its first check
// passes. Registering a name twice replaces the earlier component.
func (l *Ledger) Register(name string, check CheckFunc, opts ...ComponentOption) {
	options := componentOptions{required: true}
	for _, opt := range opts {
		opt(&options)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.components[name]; !ok {
		l.order = append(l.order, name)
	}
	l.components[name] = &component{
		check:   check,
		options: options,
		record:  Record{Name: name, Required: options.required},
	}
	metrics.ComponentHealthy.WithLabelValues(name).Set(0)
}

// Run checks all components every check interval until ctx is done.
func (l *Ledger) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.options.CheckInterval)
	defer ticker.Stop()

	for {
		l.CheckNow(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// CheckNow runs one pass over all components, recovering the failing ones
// where allowed.
func (l *Ledger) CheckNow(ctx context.Context) {
	l.mu.Lock()
	names := append([]string(nil), l.order...)
	l.mu.Unlock()

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		l.checkComponent(ctx, name)
	}
}

func (l *Ledger) checkComponent(ctx context.Context, name string) {
	ctx, span := tracer.Start(ctx, "health check")
	defer span.End()
	span.SetAttributes(attribute.String("health.component", name))

	l.mu.Lock()
	c, ok := l.components[name]
	l.mu.Unlock()
	if !ok {
		return
	}

	err := l.call(ctx, c.check)
	if err == nil {
		l.markHealthy(ctx, c)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	l.markUnhealthy(ctx, c, err)

	if attempted, recoverErr := l.tryRecover(ctx, c); attempted && recoverErr == nil {
		l.markHealthy(ctx, c)
	}
}

func (l *Ledger) tryRecover(ctx context.Context, c *component) (attempted bool, err error) {
	if !l.options.AutoRecovery || c.options.recovery == nil {
		return false, nil
	}

	now := l.now()
	l.mu.Lock()
	name := c.record.Name
	if c.record.RecoveryAttempts >= l.options.MaxAttempts {
		l.mu.Unlock()
		return false, nil
	}
	if !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < l.options.Cooldown {
		l.mu.Unlock()
		return false, nil
	}
	c.record.RecoveryAttempts++
	attempt := c.record.RecoveryAttempts
	c.lastAttempt = now
	l.mu.Unlock()

	logger.InfoContext(ctx, "recovering component", "component", name, "attempt", attempt, "max_attempts", l.options.MaxAttempts)
	if err := l.call(ctx, c.options.recovery); err != nil {
		metrics.RecoveryAttempts.WithLabelValues(name, "failed").Inc()
		logger.WarnContext(ctx, "component recovery failed", "component", name, "attempt", attempt, "error", err)

		l.mu.Lock()
		c.record.LastError = fmt.Errorf("recovery attempt %d failed: %w", attempt, err)
		l.mu.Unlock()
		return true, err
	}

	metrics.RecoveryAttempts.WithLabelValues(name, "succeeded").Inc()
	return true, nil
}

func (l *Ledger) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, l.options.CheckTimeout)
	defer cancel()
	return fn(ctx)
}

func (l *Ledger) markHealthy(ctx context.Context, c *component) {
	l.mu.Lock()
	wasHealthy := c.record.Healthy
	c.record.Healthy = true
	c.record.LastCheck = l.now()
	c.record.LastError = nil
	c.record.RecoveryAttempts = 0
	c.lastAttempt = time.Time{}
	name := c.record.Name
	l.mu.Unlock()

	metrics.ComponentHealthy.WithLabelValues(name).Set(1)
	if !wasHealthy {
		logger.InfoContext(ctx, "component healthy", "component", name)
	}
}

func (l *Ledger) markUnhealthy(ctx context.Context, c *component, err error) {
	l.mu.Lock()
	wasHealthy := c.record.Healthy
	c.record.Healthy = false
	c.record.LastCheck = l.now()
	c.record.LastError = err
	name := c.record.Name
	l.mu.Unlock()

	metrics.ComponentHealthy.WithLabelValues(name).Set(0)
	if wasHealthy {
		logger.WarnContext(ctx, "component unhealthy", "component", name, "error", err)
	}
}

func (l *Ledger) IsHealthy(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.components[name]
	return ok && c.record.Healthy
}

// Ready reports whether every required component is healthy.
func (l *Ledger) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.components {
		if c.options.required && !c.record.Healthy {
			return false
		}
	}
	return true
}

// Record returns the record of the named component.
func (l *Ledger) Record(name string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.components[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	return c.record, nil
}

// Records returns all records in registration order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	records := make([]Record, 0, len(l.order))
	for _, name := range l.order {
		records = append(records, l.components[name].record)
	}
	return records
}
