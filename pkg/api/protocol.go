package api

import (
	"strings"
	"time"
)

// OrchestrationStatus mirrors the sidecar's orchestration runtime status.
type OrchestrationStatus int32

const (
	OrchestrationStatusRunning        OrchestrationStatus = 0
	OrchestrationStatusCompleted      OrchestrationStatus = 1
	OrchestrationStatusContinuedAsNew OrchestrationStatus = 2
	OrchestrationStatusFailed         OrchestrationStatus = 3
	OrchestrationStatusCanceled       OrchestrationStatus = 4
	OrchestrationStatusTerminated     OrchestrationStatus = 5
	OrchestrationStatusPending        OrchestrationStatus = 6
	OrchestrationStatusSuspended      OrchestrationStatus = 7
)

func (s OrchestrationStatus) String() string {
	switch s {
	case OrchestrationStatusRunning:
		return "RUNNING"
	case OrchestrationStatusCompleted:
		return "COMPLETED"
	case OrchestrationStatusContinuedAsNew:
		return "CONTINUED_AS_NEW"
	case OrchestrationStatusFailed:
		return "FAILED"
	case OrchestrationStatusCanceled:
		return "CANCELED"
	case OrchestrationStatusTerminated:
		return "TERMINATED"
	case OrchestrationStatusPending:
		return "PENDING"
	case OrchestrationStatusSuspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// OptionalString returns a pointer to s, for the protocol's optional string fields.
func OptionalString(s string) *string {
	return &s
}

// OrchestrationInstance identifies one execution of an orchestration.
type OrchestrationInstance struct {
	InstanceID  string
	ExecutionID *string
}

// FailureDetails is the wire-transmissible description of an error.
type FailureDetails struct {
	ErrorType      string
	ErrorMessage   string
	StackTrace     *string
	InnerFailure   *FailureDetails
	IsNonRetriable bool
}

// String renders the failure as "<type>: <message>", followed by the stack
// trace and any inner failures on separate lines.
func (f *FailureDetails) String() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	for cur, depth := f, 0; cur != nil; cur, depth = cur.InnerFailure, depth+1 {
		if depth > 0 {
			b.WriteString("\ncaused by: ")
		}
		b.WriteString(cur.ErrorType)
		b.WriteString(": ")
		b.WriteString(cur.ErrorMessage)
		if cur.StackTrace != nil && *cur.StackTrace != "" {
			b.WriteString("\n")
			b.WriteString(*cur.StackTrace)
		}
	}
	return b.String()
}

// HistoryEvent is one entry of an orchestration's event history.
// At most one of the event pointers is set. Event kinds this package does
// not model are kept verbatim in Raw so the history can be forwarded intact.
type HistoryEvent struct {
	EventID   int32
	Timestamp time.Time

	ExecutionStarted      *ExecutionStartedEvent
	ExecutionCompleted    *ExecutionCompletedEvent
	ExecutionTerminated   *ExecutionTerminatedEvent
	TaskScheduled         *TaskScheduledEvent
	TaskCompleted         *TaskCompletedEvent
	TaskFailed            *TaskFailedEvent
	TimerCreated          *TimerCreatedEvent
	TimerFired            *TimerFiredEvent
	OrchestratorStarted   *OrchestratorStartedEvent
	OrchestratorCompleted *OrchestratorCompletedEvent
	EventSent             *EventSentEvent
	EventRaised           *EventRaisedEvent
	ContinueAsNew         *ContinueAsNewEvent
	ExecutionSuspended    *ExecutionSuspendedEvent
	ExecutionResumed      *ExecutionResumedEvent

	Raw *RawEvent
}

type ExecutionStartedEvent struct {
	Name                  string
	Version               *string
	Input                 *string
	OrchestrationInstance *OrchestrationInstance
}

type ExecutionCompletedEvent struct {
	Status         OrchestrationStatus
	Result         *string
	FailureDetails *FailureDetails
}

type ExecutionTerminatedEvent struct {
	Input   *string
	Recurse bool
}

type TaskScheduledEvent struct {
	Name    string
	Version *string
	Input   *string
}

type TaskCompletedEvent struct {
	TaskScheduledID int32
	Result          *string
}

type TaskFailedEvent struct {
	TaskScheduledID int32
	FailureDetails  *FailureDetails
}

type TimerCreatedEvent struct {
	FireAt time.Time
}

type TimerFiredEvent struct {
	FireAt  time.Time
	TimerID int32
}

type OrchestratorStartedEvent struct{}

type OrchestratorCompletedEvent struct{}

type EventSentEvent struct {
	InstanceID string
	Name       string
	Input      *string
}

type EventRaisedEvent struct {
	Name  string
	Input *string
}

type ContinueAsNewEvent struct {
	Input *string
}

type ExecutionSuspendedEvent struct {
	Input *string
}

type ExecutionResumedEvent struct {
	Input *string
}

// RawEvent holds an event variant by its protocol field number and encoded body.
type RawEvent struct {
	Field int32
	Data  []byte
}

// OrchestratorAction is one decision produced by an orchestration turn.
// Exactly one of the action pointers is set.
type OrchestratorAction struct {
	ID int32

	ScheduleTask           *ScheduleTaskAction
	CreateSubOrchestration *CreateSubOrchestrationAction
	CreateTimer            *CreateTimerAction
	SendEvent              *SendEventAction
	CompleteOrchestration  *CompleteOrchestrationAction
	TerminateOrchestration *TerminateOrchestrationAction
}

type ScheduleTaskAction struct {
	Name    string
	Version *string
	Input   *string
}

type CreateSubOrchestrationAction struct {
	InstanceID string
	Name       string
	Version    *string
	Input      *string
}

type CreateTimerAction struct {
	FireAt time.Time
}

type SendEventAction struct {
	Instance *OrchestrationInstance
	Name     string
	Data     *string
}

type CompleteOrchestrationAction struct {
	Status          OrchestrationStatus
	Result          *string
	Details         *string
	NewVersion      *string
	CarryoverEvents []*HistoryEvent
	FailureDetails  *FailureDetails
}

type TerminateOrchestrationAction struct {
	InstanceID string
	Reason     *string
	Recurse    bool
}

// NewCompleteOrchestrationAction builds a complete-orchestration action.
// When failure is non-nil its textual form is also carried in Details.
func NewCompleteOrchestrationAction(id int32, status OrchestrationStatus, result *string, failure *FailureDetails) *OrchestratorAction {
	complete := &CompleteOrchestrationAction{
		Status:         status,
		Result:         result,
		FailureDetails: failure,
	}
	if failure != nil {
		complete.Details = OptionalString(failure.String())
	}
	return &OrchestratorAction{ID: id, CompleteOrchestration: complete}
}

// OrchestratorRequest asks the worker to run one orchestration turn.
type OrchestratorRequest struct {
	InstanceID  string
	ExecutionID *string
	PastEvents  []*HistoryEvent
	NewEvents   []*HistoryEvent
}

// OrchestratorResponse reports the actions decided by an orchestration turn.
type OrchestratorResponse struct {
	InstanceID      string
	Actions         []*OrchestratorAction
	CustomStatus    *string
	CompletionToken string
}

// ActivityRequest asks the worker to run one activity.
type ActivityRequest struct {
	Name                  string
	Version               *string
	Input                 *string
	OrchestrationInstance *OrchestrationInstance
	TaskID                int32
}

// ActivityResponse reports the outcome of an activity. Exactly one of
// Result and FailureDetails is set.
type ActivityResponse struct {
	InstanceID      string
	TaskID          int32
	Result          *string
	FailureDetails  *FailureDetails
	CompletionToken string
}

// WorkItemKind classifies a WorkItem.
type WorkItemKind string

const (
	WorkItemOrchestrator WorkItemKind = "orchestrator"
	WorkItemActivity     WorkItemKind = "activity"
	WorkItemUnknown      WorkItemKind = "unknown"
)

// WorkItem is a unit of work streamed from the sidecar. At most one of
// OrchestratorRequest and ActivityRequest is set; neither means the sidecar
// sent a variant this worker does not handle.
type WorkItem struct {
	OrchestratorRequest *OrchestratorRequest
	ActivityRequest     *ActivityRequest
	CompletionToken     string
}

// Kind reports which variant the item carries.
func (w *WorkItem) Kind() WorkItemKind {
	switch {
	case w == nil:
		return WorkItemUnknown
	case w.OrchestratorRequest != nil:
		return WorkItemOrchestrator
	case w.ActivityRequest != nil:
		return WorkItemActivity
	default:
		return WorkItemUnknown
	}
}

// GetWorkItemsRequest opens the work-item stream.
type GetWorkItemsRequest struct {
	MaxConcurrentOrchestrationWorkItems int32
	MaxConcurrentActivityWorkItems      int32
}
