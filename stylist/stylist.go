// Package stylist runs the outfit recommendation conversation: it keeps one
// session per user chat, asks a chat-completion model for the next reply and
// folds the structured answer back into the session.
package stylist

import "errors"

const (
	GreetingMessage   = "Hi! I'm your stylist. Tell me where you're going or the look you're after and I'll put an outfit together from your closet."
	FallbackMessage   = "Sorry, I encountered an error. Please try again."
	DefaultCommentary = "Here is an outfit suggestion!"
)

var (
	ErrEmptyUtterance  = errors.New("stylist: message is empty")
	ErrTurnInProgress  = errors.New("stylist: previous message is still being answered")
	ErrSessionClosed   = errors.New("stylist: session is closed")
	ErrSessionNotFound = errors.New("stylist: session not found")
)
