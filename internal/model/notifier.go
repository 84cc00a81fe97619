package model

// Notifier delivers alert messages.
type Notifier interface {
	Send(subject, body string) error
}
