package log

import "testing"

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(Event{Message: "hello"})
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var l NoopLogger
	l.Log(Event{})
}
