package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/petrijr/taskhub/pkg/api"
)

// HistoryEvent oneof field numbers.
const (
	eventExecutionStarted      protowire.Number = 3
	eventExecutionCompleted    protowire.Number = 4
	eventExecutionTerminated   protowire.Number = 5
	eventTaskScheduled         protowire.Number = 6
	eventTaskCompleted         protowire.Number = 7
	eventTaskFailed            protowire.Number = 8
	eventTimerCreated          protowire.Number = 12
	eventTimerFired            protowire.Number = 13
	eventOrchestratorStarted   protowire.Number = 14
	eventOrchestratorCompleted protowire.Number = 15
	eventSent                  protowire.Number = 16
	eventRaised                protowire.Number = 17
	eventContinueAsNew         protowire.Number = 20
	eventExecutionSuspended    protowire.Number = 21
	eventExecutionResumed      protowire.Number = 22
)

func encodeHistoryEvent(e *encoder, ev *api.HistoryEvent) {
	e.int32(1, ev.EventID)
	e.timestamp(2, ev.Timestamp)

	switch {
	case ev.ExecutionStarted != nil:
		x := ev.ExecutionStarted
		e.message(eventExecutionStarted, func(e *encoder) {
			e.string(1, x.Name)
			e.stringValue(2, x.Version)
			e.stringValue(3, x.Input)
			if x.OrchestrationInstance != nil {
				e.message(4, func(e *encoder) { encodeInstance(e, x.OrchestrationInstance) })
			}
		})
	case ev.ExecutionCompleted != nil:
		x := ev.ExecutionCompleted
		e.message(eventExecutionCompleted, func(e *encoder) {
			e.int32(1, int32(x.Status))
			e.stringValue(2, x.Result)
			if x.FailureDetails != nil {
				e.message(3, func(e *encoder) { encodeFailureDetails(e, x.FailureDetails) })
			}
		})
	case ev.ExecutionTerminated != nil:
		x := ev.ExecutionTerminated
		e.message(eventExecutionTerminated, func(e *encoder) {
			e.stringValue(1, x.Input)
			e.bool(2, x.Recurse)
		})
	case ev.TaskScheduled != nil:
		x := ev.TaskScheduled
		e.message(eventTaskScheduled, func(e *encoder) {
			e.string(1, x.Name)
			e.stringValue(2, x.Version)
			e.stringValue(3, x.Input)
		})
	case ev.TaskCompleted != nil:
		x := ev.TaskCompleted
		e.message(eventTaskCompleted, func(e *encoder) {
			e.int32(1, x.TaskScheduledID)
			e.stringValue(2, x.Result)
		})
	case ev.TaskFailed != nil:
		x := ev.TaskFailed
		e.message(eventTaskFailed, func(e *encoder) {
			e.int32(1, x.TaskScheduledID)
			if x.FailureDetails != nil {
				e.message(2, func(e *encoder) { encodeFailureDetails(e, x.FailureDetails) })
			}
		})
	case ev.TimerCreated != nil:
		x := ev.TimerCreated
		e.message(eventTimerCreated, func(e *encoder) { e.timestamp(1, x.FireAt) })
	case ev.TimerFired != nil:
		x := ev.TimerFired
		e.message(eventTimerFired, func(e *encoder) {
			e.timestamp(1, x.FireAt)
			e.int32(2, x.TimerID)
		})
	case ev.OrchestratorStarted != nil:
		e.message(eventOrchestratorStarted, func(*encoder) {})
	case ev.OrchestratorCompleted != nil:
		e.message(eventOrchestratorCompleted, func(*encoder) {})
	case ev.EventSent != nil:
		x := ev.EventSent
		e.message(eventSent, func(e *encoder) {
			e.string(1, x.InstanceID)
			e.string(2, x.Name)
			e.stringValue(3, x.Input)
		})
	case ev.EventRaised != nil:
		x := ev.EventRaised
		e.message(eventRaised, func(e *encoder) {
			e.string(1, x.Name)
			e.stringValue(2, x.Input)
		})
	case ev.ContinueAsNew != nil:
		x := ev.ContinueAsNew
		e.message(eventContinueAsNew, func(e *encoder) { e.stringValue(1, x.Input) })
	case ev.ExecutionSuspended != nil:
		x := ev.ExecutionSuspended
		e.message(eventExecutionSuspended, func(e *encoder) { e.stringValue(1, x.Input) })
	case ev.ExecutionResumed != nil:
		x := ev.ExecutionResumed
		e.message(eventExecutionResumed, func(e *encoder) { e.stringValue(1, x.Input) })
	case ev.Raw != nil:
		e.bytes(protowire.Number(ev.Raw.Field), ev.Raw.Data)
	}
}

func decodeHistoryEvent(b []byte) (*api.HistoryEvent, error) {
	ev := &api.HistoryEvent{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			ev.EventID, err = f.int32()
			return err
		case 2:
			ev.Timestamp, err = f.timestamp()
			return err
		}

		// Everything past the header is a oneof member.
		if f.typ != protowire.BytesType {
			return nil
		}
		msg, err := f.message()
		if err != nil {
			return err
		}
		switch f.num {
		case eventExecutionStarted:
			ev.ExecutionStarted, err = decodeExecutionStarted(msg)
		case eventExecutionCompleted:
			ev.ExecutionCompleted, err = decodeExecutionCompleted(msg)
		case eventExecutionTerminated:
			x := &api.ExecutionTerminatedEvent{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.Input, err = f.stringValue()
				case 2:
					x.Recurse, err = f.bool()
				}
				return err
			})
			ev.ExecutionTerminated = x
		case eventTaskScheduled:
			x := &api.TaskScheduledEvent{}
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
			ev.TaskScheduled = x
		case eventTaskCompleted:
			x := &api.TaskCompletedEvent{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.TaskScheduledID, err = f.int32()
				case 2:
					x.Result, err = f.stringValue()
				}
				return err
			})
			ev.TaskCompleted = x
		case eventTaskFailed:
			x := &api.TaskFailedEvent{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.TaskScheduledID, err = f.int32()
				case 2:
					var inner []byte
					if inner, err = f.message(); err == nil {
						x.FailureDetails, err = decodeFailureDetails(inner)
					}
				}
				return err
			})
			ev.TaskFailed = x
		case eventTimerCreated:
			x := &api.TimerCreatedEvent{}
			err = forEachField(msg, func(f field) (err error) {
				if f.num == 1 {
					x.FireAt, err = f.timestamp()
				}
				return err
			})
			ev.TimerCreated = x
		case eventTimerFired:
			x := &api.TimerFiredEvent{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.FireAt, err = f.timestamp()
				case 2:
					x.TimerID, err = f.int32()
				}
				return err
			})
			ev.TimerFired = x
		case eventOrchestratorStarted:
			ev.OrchestratorStarted = &api.OrchestratorStartedEvent{}
		case eventOrchestratorCompleted:
			ev.OrchestratorCompleted = &api.OrchestratorCompletedEvent{}
		case eventSent:
			x := &api.EventSentEvent{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.InstanceID, err = f.str()
				case 2:
					x.Name, err = f.str()
				case 3:
					x.Input, err = f.stringValue()
				}
				return err
			})
			ev.EventSent = x
		case eventRaised:
			x := &api.EventRaisedEvent{}
			err = forEachField(msg, func(f field) (err error) {
				switch f.num {
				case 1:
					x.Name, err = f.str()
				case 2:
					x.Input, err = f.stringValue()
				}
				return err
			})
			ev.EventRaised = x
		case eventContinueAsNew:
			var input *string
			input, err = decodeInputOnly(msg)
			ev.ContinueAsNew = &api.ContinueAsNewEvent{Input: input}
		case eventExecutionSuspended:
			var input *string
			input, err = decodeInputOnly(msg)
			ev.ExecutionSuspended = &api.ExecutionSuspendedEvent{Input: input}
		case eventExecutionResumed:
			var input *string
			input, err = decodeInputOnly(msg)
			ev.ExecutionResumed = &api.ExecutionResumedEvent{Input: input}
		default:
			data := make([]byte, len(msg))
			copy(data, msg)
			ev.Raw = &api.RawEvent{Field: int32(f.num), Data: data}
		}
		return err
	})
	return ev, err
}

func decodeExecutionStarted(b []byte) (*api.ExecutionStartedEvent, error) {
	x := &api.ExecutionStartedEvent{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			x.Name, err = f.str()
		case 2:
			x.Version, err = f.stringValue()
		case 3:
			x.Input, err = f.stringValue()
		case 4:
			var msg []byte
			if msg, err = f.message(); err == nil {
				x.OrchestrationInstance, err = decodeInstance(msg)
			}
		}
		return err
	})
	return x, err
}

func decodeExecutionCompleted(b []byte) (*api.ExecutionCompletedEvent, error) {
	x := &api.ExecutionCompletedEvent{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			var status int32
			status, err = f.int32()
			x.Status = api.OrchestrationStatus(status)
		case 2:
			x.Result, err = f.stringValue()
		case 3:
			var msg []byte
			if msg, err = f.message(); err == nil {
				x.FailureDetails, err = decodeFailureDetails(msg)
			}
		}
		return err
	})
	return x, err
}

func decodeInputOnly(b []byte) (*string, error) {
	var input *string
	err := forEachField(b, func(f field) (err error) {
		if f.num == 1 {
			input, err = f.stringValue()
		}
		return err
	})
	return input, err
}
