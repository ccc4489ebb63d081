package bot

import (
	"runtime/debug"
)

// recoverMiddleware handles panics in update handlers
func (b *Bot) recoverMiddleware(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Panic recovered in handler")
		}
	}()

	handler()
}
