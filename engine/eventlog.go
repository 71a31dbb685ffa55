package engine

import (
	"bufio"
	"fmt"
	"io"
)

// EventLogWriter emits the append-only event-log format from spec §6: one
// key=value record per line, per significant kernel event.
//
// Grounded on the teacher's buffered-writer style in sim/metrics_utils.go
// (bufio.Writer over a file), generalized from a metrics dump to a
// structured per-event record stream.
type EventLogWriter struct {
	w   *bufio.Writer
	n   uint64
}

// NewEventLogWriter wraps w for buffered, line-oriented event records.
func NewEventLogWriter(w io.Writer) *EventLogWriter {
	return &EventLogWriter{w: bufio.NewWriter(w)}
}

// Delivered records a message delivery: E#n t=T src=(mod,gate) dst=(mod,gate) msg=id kind=K
func (l *EventLogWriter) Delivered(msg *Message) {
	l.n++
	fmt.Fprintf(l.w, "E#%d t=%s src=(%d,%d) dst=(%d,%d) msg=%d kind=%s\n",
		l.n, msg.ArrivalTime, msg.SenderModuleID, msg.SenderGateID,
		msg.ArrivalModuleID, msg.ArrivalGateID, msg.ID, msg.Kind)
}

// ModuleCreated records a module-created event.
func (l *EventLogWriter) ModuleCreated(path string, id ModuleID) {
	l.n++
	fmt.Fprintf(l.w, "E#%d module-created id=%d path=%s\n", l.n, id, path)
}

// ModuleDeleted records a module-deleted event.
func (l *EventLogWriter) ModuleDeleted(path string, id ModuleID) {
	l.n++
	fmt.Fprintf(l.w, "E#%d module-deleted id=%d path=%s\n", l.n, id, path)
}

// Flush ensures all buffered records reach the underlying writer.
func (l *EventLogWriter) Flush() error { return l.w.Flush() }

// eventLogObserver adapts an EventLogWriter to the Observer interface so a run
// can be logged and replayed-for-diff (testable property 7: idempotent
// finish / identical event log across repeated runs of the same config).
type eventLogObserver struct {
	NopObserver
	log *EventLogWriter
}

// Observer returns an Observer that mirrors kernel activity into l.
func (l *EventLogWriter) Observer() Observer {
	return &eventLogObserver{log: l}
}

func (o *eventLogObserver) OnModuleCreated(path string, id ModuleID) { o.log.ModuleCreated(path, id) }
func (o *eventLogObserver) OnModuleDeleted(path string, id ModuleID) { o.log.ModuleDeleted(path, id) }
func (o *eventLogObserver) OnMessageDelivered(msg *Message)          { o.log.Delivered(msg) }
