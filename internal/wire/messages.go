package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/petrijr/taskhub/pkg/api"
)

// Field numbers follow orchestrator_service.proto.
const (
	workItemOrchestratorRequest protowire.Number = 1
	workItemActivityRequest     protowire.Number = 2
	workItemCompletionToken     protowire.Number = 10
)

func encodeInstance(e *encoder, inst *api.OrchestrationInstance) {
	e.string(1, inst.InstanceID)
	e.stringValue(2, inst.ExecutionID)
}

func decodeInstance(b []byte) (*api.OrchestrationInstance, error) {
	inst := &api.OrchestrationInstance{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			inst.InstanceID, err = f.str()
		case 2:
			inst.ExecutionID, err = f.stringValue()
		}
		return err
	})
	return inst, err
}

func encodeFailureDetails(e *encoder, d *api.FailureDetails) {
	e.string(1, d.ErrorType)
	e.string(2, d.ErrorMessage)
	e.stringValue(3, d.StackTrace)
	if d.InnerFailure != nil {
		e.message(4, func(e *encoder) { encodeFailureDetails(e, d.InnerFailure) })
	}
	e.bool(5, d.IsNonRetriable)
}

func decodeFailureDetails(b []byte) (*api.FailureDetails, error) {
	d := &api.FailureDetails{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			d.ErrorType, err = f.str()
		case 2:
			d.ErrorMessage, err = f.str()
		case 3:
			d.StackTrace, err = f.stringValue()
		case 4:
			var msg []byte
			if msg, err = f.message(); err == nil {
				d.InnerFailure, err = decodeFailureDetails(msg)
			}
		case 5:
			d.IsNonRetriable, err = f.bool()
		}
		return err
	})
	return d, err
}

func encodeOrchestratorRequest(e *encoder, req *api.OrchestratorRequest) {
	e.string(1, req.InstanceID)
	e.stringValue(2, req.ExecutionID)
	for _, ev := range req.PastEvents {
		e.message(3, func(e *encoder) { encodeHistoryEvent(e, ev) })
	}
	for _, ev := range req.NewEvents {
		e.message(4, func(e *encoder) { encodeHistoryEvent(e, ev) })
	}
}

func decodeOrchestratorRequest(b []byte) (*api.OrchestratorRequest, error) {
	req := &api.OrchestratorRequest{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			req.InstanceID, err = f.str()
		case 2:
			req.ExecutionID, err = f.stringValue()
		case 3, 4:
			var msg []byte
			if msg, err = f.message(); err != nil {
				return err
			}
			ev, err := decodeHistoryEvent(msg)
			if err != nil {
				return err
			}
			if f.num == 3 {
				req.PastEvents = append(req.PastEvents, ev)
			} else {
				req.NewEvents = append(req.NewEvents, ev)
			}
		}
		return err
	})
	return req, err
}

func encodeOrchestratorResponse(e *encoder, res *api.OrchestratorResponse) {
	e.string(1, res.InstanceID)
	for _, a := range res.Actions {
		e.message(2, func(e *encoder) { encodeAction(e, a) })
	}
	e.stringValue(3, res.CustomStatus)
	e.string(4, res.CompletionToken)
}

func decodeOrchestratorResponse(b []byte) (*api.OrchestratorResponse, error) {
	res := &api.OrchestratorResponse{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			res.InstanceID, err = f.str()
		case 2:
			var msg []byte
			if msg, err = f.message(); err != nil {
				return err
			}
			a, err := decodeAction(msg)
			if err != nil {
				return err
			}
			res.Actions = append(res.Actions, a)
		case 3:
			res.CustomStatus, err = f.stringValue()
		case 4:
			res.CompletionToken, err = f.str()
		}
		return err
	})
	return res, err
}

func encodeActivityRequest(e *encoder, req *api.ActivityRequest) {
	e.string(1, req.Name)
	e.stringValue(2, req.Version)
	e.stringValue(3, req.Input)
	if req.OrchestrationInstance != nil {
		e.message(4, func(e *encoder) { encodeInstance(e, req.OrchestrationInstance) })
	}
	e.int32(5, req.TaskID)
}

func decodeActivityRequest(b []byte) (*api.ActivityRequest, error) {
	req := &api.ActivityRequest{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			req.Name, err = f.str()
		case 2:
			req.Version, err = f.stringValue()
		case 3:
			req.Input, err = f.stringValue()
		case 4:
			var msg []byte
			if msg, err = f.message(); err == nil {
				req.OrchestrationInstance, err = decodeInstance(msg)
			}
		case 5:
			req.TaskID, err = f.int32()
		}
		return err
	})
	return req, err
}

func encodeActivityResponse(e *encoder, res *api.ActivityResponse) {
	e.string(1, res.InstanceID)
	e.int32(2, res.TaskID)
	e.stringValue(3, res.Result)
	if res.FailureDetails != nil {
		e.message(4, func(e *encoder) { encodeFailureDetails(e, res.FailureDetails) })
	}
	e.string(5, res.CompletionToken)
}

func decodeActivityResponse(b []byte) (*api.ActivityResponse, error) {
	res := &api.ActivityResponse{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			res.InstanceID, err = f.str()
		case 2:
			res.TaskID, err = f.int32()
		case 3:
			res.Result, err = f.stringValue()
		case 4:
			var msg []byte
			if msg, err = f.message(); err == nil {
				res.FailureDetails, err = decodeFailureDetails(msg)
			}
		case 5:
			res.CompletionToken, err = f.str()
		}
		return err
	})
	return res, err
}

func encodeWorkItem(e *encoder, item *api.WorkItem) {
	switch {
	case item.OrchestratorRequest != nil:
		e.message(workItemOrchestratorRequest, func(e *encoder) { encodeOrchestratorRequest(e, item.OrchestratorRequest) })
	case item.ActivityRequest != nil:
		e.message(workItemActivityRequest, func(e *encoder) { encodeActivityRequest(e, item.ActivityRequest) })
	}
	e.string(workItemCompletionToken, item.CompletionToken)
}

// decodeWorkItem leaves both requests nil for oneof members other than
// orchestrator and activity requests (entity batches, health pings).
func decodeWorkItem(b []byte) (*api.WorkItem, error) {
	item := &api.WorkItem{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case workItemOrchestratorRequest:
			var msg []byte
			if msg, err = f.message(); err == nil {
				item.OrchestratorRequest, err = decodeOrchestratorRequest(msg)
			}
		case workItemActivityRequest:
			var msg []byte
			if msg, err = f.message(); err == nil {
				item.ActivityRequest, err = decodeActivityRequest(msg)
			}
		case workItemCompletionToken:
			item.CompletionToken, err = f.str()
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("decode work item: %w", err)
	}
	return item, nil
}

func encodeGetWorkItemsRequest(e *encoder, req *api.GetWorkItemsRequest) {
	e.int32(1, req.MaxConcurrentOrchestrationWorkItems)
	e.int32(2, req.MaxConcurrentActivityWorkItems)
}

func decodeGetWorkItemsRequest(b []byte) (*api.GetWorkItemsRequest, error) {
	req := &api.GetWorkItemsRequest{}
	err := forEachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			req.MaxConcurrentOrchestrationWorkItems, err = f.int32()
		case 2:
			req.MaxConcurrentActivityWorkItems, err = f.int32()
		}
		return err
	})
	return req, err
}
