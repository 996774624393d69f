package services

import "time"

// Option configures a service at construction.
type Option func(*serviceOptions)

type serviceOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for timestamps and SLA evaluation.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) serviceOptions {
	o := serviceOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
