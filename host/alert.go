package host

import "time"

type (
	// Alert is a diagnostic message to whoever owns the session, sent
	// through the broker. Alerts with the same Name replace each other, so
	// a repeating fault does not flood the receiver.
	Alert struct {
		Name     string
		Message  string
		Priority AlertPriority
		Duration time.Duration
	}

	AlertPriority int
)

const (
	None AlertPriority = iota
	Notify
	Warning
	Error
)

const defaultAlertDuration = 3 * time.Second
