package notification

import "errors"

var (
	// ErrNoRecipients is returned when no To recipients are provided
	ErrNoRecipients = errors.New("at least one recipient is required")

	// ErrInvalidRecipient is returned when a recipient has no usable email address
	ErrInvalidRecipient = errors.New("recipient must have an email address")

	// ErrNoSource is returned when the request does not say what was transcribed
	ErrNoSource = errors.New("source name is required")

	// ErrNoCompletionTime is returned when the completion time is missing
	ErrNoCompletionTime = errors.New("completion time is required")

	// ErrRecipientNotFound is returned when a recipient lookup fails
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrAmbiguousRecipient is returned when multiple recipients match a query
	ErrAmbiguousRecipient = errors.New("multiple recipients match query")

	// ErrSendFailed is returned when the email fails to send
	ErrSendFailed = errors.New("failed to send email")
)
