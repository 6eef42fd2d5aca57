package session

// Task is work that may block. It runs off the control thread and hands
// back a Resume to run on the control thread.
type Task func() Resume

// Resume runs on the control thread. It may start a follow-up Task.
type Resume func() Task

// Drive runs a task chain to completion on the calling goroutine, playing
// both roles. Hosts without an event loop (and tests) use it.
func Drive(t Task) {
	for t != nil {
		r := t()
		if r == nil {
			return
		}
		t = r()
	}
}
