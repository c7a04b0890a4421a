package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/petrijr/taskhub/pkg/api"
)

// OrchestratorAction oneof field numbers.
const (
	actionScheduleTask           protowire.Number = 2
	actionCreateSubOrchestration protowire.Number = 3
	actionCreateTimer            protowire.Number = 4
	actionSendEvent              protowire.Number = 5
	actionCompleteOrchestration  protowire.Number = 6
	actionTerminateOrchestration protowire.Number = 7
)

func encodeAction(e *encoder, a *api.OrchestratorAction) {
	e.int32(1, a.ID)

	switch {
	case a.ScheduleTask != nil:
		x := a.ScheduleTask
		e.message(actionScheduleTask, func(e *encoder) {
			e.string(1, x.Name)
			e.stringValue(2, x.Version)
			e.stringValue(3, x.Input)
		})
	case a.CreateSubOrchestration != nil:
		x := a.CreateSubOrchestration
		e.message(actionCreateSubOrchestration, func(e *encoder) {
			e.string(1, x.InstanceID)
			e.string(2, x.Name)
			e.stringValue(3, x.Version)
			e.stringValue(4, x.Input)
		})
	case a.CreateTimer != nil:
		x := a.CreateTimer
		e.message(actionCreateTimer, func(e *encoder) { e.timestamp(1, x.FireAt) })
	case a.SendEvent != nil:
		x := a.SendEvent
		e.message(actionSendEvent, func(e *encoder) {
			if x.Instance != nil {
				e.message(1, func(e *encoder) { encodeInstance(e, x.Instance) })
			}
			e.string(2, x.Name)
			e.stringValue(3, x.Data)
		})
	case a.CompleteOrchestration != nil:
		x := a.CompleteOrchestration
		e.message(actionCompleteOrchestration, func(e *encoder) {
			e.int32(1, int32(x.Status))
			e.stringValue(2, x.Result)
			e.stringValue(3, x.Details)
			e.stringValue(4, x.NewVersion)
			for _, ev := range x.CarryoverEvents {
				e.message(5, func(e *encoder) { encodeHistoryEvent(e, ev) })
			}
			if x.FailureDetails != nil {
				e.message(6, func(e *encoder) { encodeFailureDetails(e, x.FailureDetails) })
			}
		})
	case a.TerminateOrchestration != nil:
		x := a.TerminateOrchestration
		e.message(actionTerminateOrchestration, func(e *encoder) {
			e.string(1, x.InstanceID)
			e.stringValue(2, x.Reason)
			e.bool(3, x.Recurse)
		})
	default:
		e.err = fmt.Errorf("wire: action %d has no variant set", a.ID)
	}
}

func decodeAction(b []byte) (*api.OrchestratorAction, error) {
	a := &api.OrchestratorAction{}
	err := forEachField(b, func(f field) (err error) {
		if f.num == 1 {
			a.ID, err = f.int32()
			return err
		}
		if f.typ != protowire.BytesType {
			return nil
		}
		msg, err := f.message()
		if err != nil {
			return err
		}
		switch f.num {
		case actionScheduleTask:
			x := &api.ScheduleTaskAction{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.Name, err = f.str()
				case 2:
					x.Version, err = f.stringValue()
				case 3:
					x.Input, err = f.stringValue()
				}
				return err
			})
			a.ScheduleTask = x
		case actionCreateSubOrchestration:
			x := &api.CreateSubOrchestrationAction{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.InstanceID, err = f.str()
				case 2:
					x.Name, err = f.str()
				case 3:
					x.Version, err = f.stringValue()
				case 4:
					x.Input, err = f.stringValue()
				}
				return err
			})
			a.CreateSubOrchestration = x
		case actionCreateTimer:
			x := &api.CreateTimerAction{}
			err = forEachField(msg, func(f field) (err error) {
				if f.num == 1 {
					x.FireAt, err = f.timestamp()
				}
				return err
			})
			a.CreateTimer = x
		case actionSendEvent:
			x := &api.SendEventAction{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					var inner []byte
					if inner, err = f.message(); err == nil {
						x.Instance, err = decodeInstance(inner)
					}
				case 2:
					x.Name, err = f.str()
				case 3:
					x.Data, err = f.stringValue()
				}
				return err
			})
			a.SendEvent = x
		case actionCompleteOrchestration:
			a.CompleteOrchestration, err = decodeCompleteOrchestration(msg)
		case actionTerminateOrchestration:
			x := &api.TerminateOrchestrationAction{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.InstanceID, err = f.str()
				case 2:
					x.Reason, err = f.stringValue()
				case 3:
					x.Recurse, err = f.bool()
				}
				return err
			})
			a.TerminateOrchestration = x
		}
		return err
	})
	return a, err
}

func decodeCompleteOrchestration(b []byte) (*api.CompleteOrchestrationAction, error) {
	x := &api.CompleteOrchestrationAction{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			var status int32
			status, err = f.int32()
			x.Status = api.OrchestrationStatus(status)
		case 2:
			x.Result, err = f.stringValue()
		case 3:
			x.Details, err = f.stringValue()
		case 4:
			x.NewVersion, err = f.stringValue()
		case 5:
			var msg []byte
			if msg, err = f.message(); err != nil {
				return err
			}
			var ev *api.HistoryEvent
			if ev, err = decodeHistoryEvent(msg); err == nil {
				x.CarryoverEvents = append(x.CarryoverEvents, ev)
			}
		case 6:
			var msg []byte
			if msg, err = f.message(); err == nil {
				x.FailureDetails, err = decodeFailureDetails(msg)
			}
		}
		return err
	})
	return x, err
}
