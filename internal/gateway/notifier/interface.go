package notifier

// Notifier pushes operator-facing messages. Implementations must be safe for
// concurrent use; failures are logged by callers, never fatal.
type Notifier interface {
	SendText(text string) error
}
