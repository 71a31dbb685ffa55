package engine

import "github.com/sirupsen/logrus"

// Observer receives notifications of kernel activity. Hooks must not mutate
// the FES or module tree. The engine does not enforce this: message hooks
// receive the live *Message, so keeping it unmodified is up to the hook.
type Observer interface {
	OnModuleCreated(path string, id ModuleID)
	OnModuleDeleted(path string, id ModuleID)
	OnMessageScheduled(msg *Message)
	OnMessageCancelled(msg *Message)
	OnMessageDelivered(msg *Message)
	OnTimeAdvance(t Time)
	OnStageBoundary(stage int)
	OnFinish(failed bool)
}

// NopObserver implements Observer with no-op methods; embed it to satisfy
// the interface while overriding only the hooks a caller cares about.
type NopObserver struct{}

func (NopObserver) OnModuleCreated(string, ModuleID)  {}
func (NopObserver) OnModuleDeleted(string, ModuleID)  {}
func (NopObserver) OnMessageScheduled(*Message)       {}
func (NopObserver) OnMessageCancelled(*Message)       {}
func (NopObserver) OnMessageDelivered(*Message)       {}
func (NopObserver) OnTimeAdvance(Time)                {}
func (NopObserver) OnStageBoundary(int)               {}
func (NopObserver) OnFinish(bool)                     {}

// LoggingObserver reports kernel activity through logrus, at the verbosity
// the teacher's CLI exposes via --log (cmd/root.go: logrus.SetLevel).
type LoggingObserver struct {
	NopObserver
	Log *logrus.Logger
}

// NewLoggingObserver returns a LoggingObserver writing to logrus's standard
// logger.
func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{Log: logrus.StandardLogger()}
}

func (o *LoggingObserver) OnModuleCreated(path string, id ModuleID) {
	o.Log.WithField("module", path).Debugf("module %d created", id)
}

func (o *LoggingObserver) OnModuleDeleted(path string, id ModuleID) {
	o.Log.WithField("module", path).Debugf("module %d deleted", id)
}

func (o *LoggingObserver) OnMessageDelivered(msg *Message) {
	o.Log.WithFields(logrus.Fields{
		"t":    msg.ArrivalTime,
		"kind": msg.Kind,
		"id":   msg.ID,
	}).Debug("message delivered")
}

func (o *LoggingObserver) OnTimeAdvance(t Time) {
	o.Log.Debugf("clock -> %s", t)
}

func (o *LoggingObserver) OnFinish(failed bool) {
	if failed {
		o.Log.Warn("simulation ended with an error; finish() skipped")
		return
	}
	o.Log.Info("simulation finished cleanly")
}
