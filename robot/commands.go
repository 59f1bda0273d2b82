package robot

import (
	"linebot/core"
	"linebot/protocol"
)

// registerCommands installs the supervisory command set
func (r *Robot) registerCommands() error {
	cmds := []struct {
		id      uint16
		name    string
		format  string
		handler core.CommandHandler
	}{
		{protocol.MsgIdentify, "identify", "", r.cmdIdentify},
		{protocol.MsgEstop, "estop", "", r.cmdEstop},
		{protocol.MsgResume, "resume", "", r.cmdResume},
		{protocol.MsgSetTelemetry, "set_telemetry", "interval=%u", r.cmdSetTelemetry},
		{protocol.MsgDumpEvents, "dump_events", "", r.cmdDumpEvents},
		{protocol.MsgSetDebug, "set_debug", "enable=%c", r.cmdSetDebug},
	}
	for _, c := range cmds {
		if err := r.registry.Register(c.id, c.name, c.format, c.handler); err != nil {
			return err
		}
	}
	return nil
}

// AttachTransport routes telemetry and events through t. Create t with
// HandleCommand as its command handler.
func (r *Robot) AttachTransport(t *protocol.Transport) {
	r.transport = t
	r.events.OnEvent = r.sendEvent
}

// HandleCommand dispatches one decoded host command
func (r *Robot) HandleCommand(cmdID uint16, data *[]byte) error {
	return r.registry.Dispatch(cmdID, data)
}

// Commands exposes the registry for inspection
func (r *Robot) Commands() *core.CommandRegistry {
	return r.registry
}

func (r *Robot) cmdIdentify(data *[]byte) error {
	if r.transport != nil {
		r.transport.SendCommand(protocol.MsgIdentifyReply, func(out protocol.OutputBuffer) {
			protocol.EncodeVLQString(out, protocol.Version)
		})
	}
	return nil
}

func (r *Robot) cmdEstop(data *[]byte) error {
	r.Halt(protocol.HaltHost)
	return nil
}

func (r *Robot) cmdResume(data *[]byte) error {
	r.Resume()
	return nil
}

func (r *Robot) cmdSetTelemetry(data *[]byte) error {
	interval, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	r.telemetryInterval = interval
	return nil
}

func (r *Robot) cmdDumpEvents(data *[]byte) error {
	r.events.Dump()
	for _, evt := range r.events.Events() {
		r.sendEvent(evt)
	}
	return nil
}

func (r *Robot) cmdSetDebug(data *[]byte) error {
	enable, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	core.SetDebugEnabled(enable != 0)
	return nil
}

func (r *Robot) sendStatus() {
	if r.transport == nil {
		return
	}
	status := r.Status()
	r.transport.SendCommand(protocol.MsgStatus, func(out protocol.OutputBuffer) {
		protocol.EncodeStatus(out, &status)
	})
}

func (r *Robot) sendEvent(evt core.ControlEvent) {
	if r.transport == nil {
		return
	}
	e := protocol.Event{
		Type:   evt.EventType,
		Cursor: evt.Cursor,
		Clock:  evt.Clock,
		Value1: evt.Value1,
		Value2: evt.Value2,
	}
	r.transport.SendCommand(protocol.MsgEvent, func(out protocol.OutputBuffer) {
		protocol.EncodeEvent(out, &e)
	})
}
