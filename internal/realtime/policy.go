package realtime

// ShouldNotify decides whether a recipient gets an unread-activity signal
// on top of the raw room broadcast. The actor never notifies itself, and a
// connection that is actively viewing the chat is told nothing it cannot
// already see. Evaluated per target at dispatch time, never cached.
func ShouldNotify(recipient, actor string, viewing bool) bool {
	if recipient == actor {
		return false
	}
	return !viewing
}
