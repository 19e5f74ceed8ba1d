package health

import "time"

type LedgerOptions struct {
	// CheckInterval is the pause between passes of [Ledger.Run].
	CheckInterval time.Duration
	// CheckTimeout bounds a single check or recovery call.
	CheckTimeout time.Duration
	// MaxAttempts bounds consecutive recovery attempts per component.
	MaxAttempts int
	// Cooldown is the minimum time between recovery attempts of a component.
	Cooldown time.Duration
	// AutoRecovery disables recovery when false, leaving only bookkeeping.
	AutoRecovery bool
}

func defaultLedgerOptions() LedgerOptions {
	return LedgerOptions{
		CheckInterval: 5 * time.Second,
		CheckTimeout:  5 * time.Second,
		MaxAttempts:   3,
		Cooldown:      2 * time.Second,
		AutoRecovery:  true,
	}
}

type LedgerOption func(*LedgerOptions)

func WithCheckInterval(interval time.Duration) LedgerOption {
	return func(o *LedgerOptions) {
		if interval > 0 {
			o.CheckInterval = interval
		}
	}
}

func WithCheckTimeout(timeout time.Duration) LedgerOption {
	return func(o *LedgerOptions) {
		if timeout > 0 {
			o.CheckTimeout = timeout
		}
	}
}

func WithMaxAttempts(attempts int) LedgerOption {
	return func(o *LedgerOptions) {
		if attempts >= 0 {
			o.MaxAttempts = attempts
		}
	}
}

func WithCooldown(cooldown time.Duration) LedgerOption {
	return func(o *LedgerOptions) {
		if cooldown >= 0 {
			o.Cooldown = cooldown
		}
	}
}

func WithAutoRecovery(enabled bool) LedgerOption {
	return func(o *LedgerOptions) { o.AutoRecovery = enabled }
}

type componentOptions struct {
	recovery RecoverFunc
	required bool
}

type ComponentOption func(*componentOptions)

// WithRecovery sets how a failing component is brought back.
func WithRecovery(recovery RecoverFunc) ComponentOption {
	return func(o *componentOptions) { o.recovery = recovery }
}

// WithRequired marks whether [Ledger.Ready] depends on the component.
// Components are required unless stated otherwise.
func WithRequired(required bool) ComponentOption {
	return func(o *componentOptions) { o.required = required }
}
