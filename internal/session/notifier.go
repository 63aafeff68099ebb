package session

// Notifier surfaces user-facing alerts and confirmations. Only start
// failures, submit failures and integrity warnings reach it; everything
// else degrades silently.
type Notifier interface {
	// Alert shows an informational message.
	Alert(title, message string)

	// Confirm asks the user a yes/no question and blocks for the answer.
	Confirm(title, message string) bool
}
