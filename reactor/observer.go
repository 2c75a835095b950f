// File: reactor/observer.go
// Author: momentics <momentics@gmail.com>
//
// Lifecycle and introspection hooks. Observers see what happens; the reactor
// never depends on them for correctness.

package reactor

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/momentics/hioload-reactor/api"
)

// Observer receives reactor lifecycle and per-transport events.
// Hooks run on the reactor goroutine or a worker and must not block.
type Observer interface {
	WillStart()
	DidStart()
	WillStop()
	DidStop()
	DidFail(err error)

	DidAccept(t api.Transport)
	DidConnect(t api.Transport)
	DidTimeout(t api.Transport)
	DidClose(t api.Transport)
	DidFailTransport(t api.Transport, err error)
}

// NopObserver ignores every event. Embed it to override selectively.
type NopObserver struct{}

func (NopObserver) WillStart()                                  {}
func (NopObserver) DidStart()                                   {}
func (NopObserver) WillStop()                                   {}
func (NopObserver) DidStop()                                    {}
func (NopObserver) DidFail(err error)                           {}
func (NopObserver) DidAccept(t api.Transport)                   {}
func (NopObserver) DidConnect(t api.Transport)                  {}
func (NopObserver) DidTimeout(t api.Transport)                  {}
func (NopObserver) DidClose(t api.Transport)                    {}
func (NopObserver) DidFailTransport(t api.Transport, err error) {}

// LogObserver reports events through logrus.
type LogObserver struct {
	Logger *log.Entry
}

// NewLogObserver creates an observer logging to the standard logrus logger.
func NewLogObserver() *LogObserver {
	return &LogObserver{Logger: log.WithField("component", "reactor")}
}

func transportFields(t api.Transport) log.Fields {
	fields := log.Fields{"transport": fmt.Sprintf("%T", t)}
	if ch := t.Channel(); ch != nil {
		fields["fd"] = ch.Fd()
		if a, ok := ch.(api.Addressable); ok {
			if addr := a.RemoteAddr(); addr != nil {
				fields["remote"] = addr.String()
			}
		}
	}
	return fields
}

func (o *LogObserver) WillStart() { o.Logger.Debug("Reactor starting") }
func (o *LogObserver) DidStart()  { o.Logger.Info("Reactor started") }
func (o *LogObserver) WillStop()  { o.Logger.Debug("Reactor stopping") }
func (o *LogObserver) DidStop()   { o.Logger.Info("Reactor stopped") }

func (o *LogObserver) DidFail(err error) {
	o.Logger.WithError(err).Error("Reactor failure")
}

func (o *LogObserver) DidAccept(t api.Transport) {
	o.Logger.WithFields(transportFields(t)).Debug("Accepted")
}

func (o *LogObserver) DidConnect(t api.Transport) {
	o.Logger.WithFields(transportFields(t)).Debug("Connected")
}

func (o *LogObserver) DidTimeout(t api.Transport) {
	o.Logger.WithFields(transportFields(t)).Info("Connection idle timeout")
}

func (o *LogObserver) DidClose(t api.Transport) {
	o.Logger.WithFields(transportFields(t)).Debug("Connection closed")
}

func (o *LogObserver) DidFailTransport(t api.Transport, err error) {
	o.Logger.WithFields(transportFields(t)).WithError(err).Warn("Connection failed")
}
