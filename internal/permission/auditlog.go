package permission

import "permgate/internal/domain"

// DefaultMaxAuditEntries is the audit log capacity when none is configured.
const DefaultMaxAuditEntries = 1000

// AuditLog is a fixed-capacity ring buffer of audit entries. Appending to a
// full log evicts the oldest entry. It is not safe for concurrent use.
type AuditLog struct {
	buf   []domain.AuditEntry
	start int
	size  int
}

func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultMaxAuditEntries
	}
	return &AuditLog{buf: make([]domain.AuditEntry, capacity)}
}

// Append adds an entry in O(1).
func (l *AuditLog) Append(e domain.AuditEntry) {
	if l.size < len(l.buf) {
		l.buf[(l.start+l.size)%len(l.buf)] = e
		l.size++
		return
	}
	l.buf[l.start] = e
	l.start = (l.start + 1) % len(l.buf)
}

func (l *AuditLog) Len() int { return l.size }
func (l *AuditLog) Cap() int { return len(l.buf) }

// Entries returns a copy of the log, oldest first, keeping only entries that
// pass filter and then only the newest limit of those. A limit of zero or less
// means no limit.
func (l *AuditLog) Entries(limit int, filter domain.AuditFilter) []domain.AuditEntry {
	out := make([]domain.AuditEntry, 0, l.size)
	for i := 0; i < l.size; i++ {
		e := l.buf[(l.start+i)%len(l.buf)]
		if filter == nil || filter(e) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Clear drops every entry.
func (l *AuditLog) Clear() {
	clear(l.buf)
	l.start, l.size = 0, 0
}
