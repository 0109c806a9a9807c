package notifier

// Notifier defines the interface for outbound alert delivery. Delivery
// is at-most-once: a failed send is the caller's to log and drop.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers one notification. disablePreview suppresses link
	// previews on channels that render them.
	Send(title, body string, disablePreview bool) error
}
