package usb

import (
	"sync"
	"time"
)

// RequestLogEntry captures one dispatched setup packet plus its decoded
// strings and outcome (spec.md 3: "Request log entry").
type RequestLogEntry struct {
	Timestamp              time.Time
	Setup                  SetupPacket
	Recipient              Recipient
	RequestNumberString    string
	DescriptorNumberString string
	Response               []byte
	HandlerErr             error
	Configured             bool
}

// RequestLog is the append-only, arrival-ordered record of every setup
// packet observed during one emulation run (spec.md 3, GLOSSARY
// "Request log"; testable property 5, request log totality).
type RequestLog struct {
	mu      sync.Mutex
	entries []RequestLogEntry
}

// NewRequestLog returns an empty log.
func NewRequestLog() *RequestLog {
	return &RequestLog{}
}

// Append adds one entry, preserving strict arrival order.
func (l *RequestLog) Append(e RequestLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// All returns a snapshot of every entry recorded so far, in arrival order.
func (l *RequestLog) All() []RequestLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]RequestLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of entries recorded so far.
func (l *RequestLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Before returns every entry recorded strictly before the first entry
// whose Configured flag is true (the "pre-config boundary" spec.md 4.K's
// OS-detection flow splits the log on). If no entry is configured, it
// returns the full log.
func (l *RequestLog) Before(configured func(RequestLogEntry) bool) []RequestLogEntry {
	all := l.All()
	for i, e := range all {
		if configured(e) {
			return all[:i]
		}
	}
	return all
}
