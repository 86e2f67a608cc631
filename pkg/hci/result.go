package hci

import (
	"errors"
	"fmt"
)

// Status is the outcome of handing a command to the transport.
type Status uint8

const (
	StatusCompleted Status = iota
	StatusPending
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var ErrTransport = errors.New("transport failure")

type Result struct {
	Status Status
	Err    error
}

func Completed() Result { return Result{Status: StatusCompleted} }

func Pending() Result { return Result{Status: StatusPending} }

func Failed(err error) Result {
	if err == nil {
		err = ErrTransport
	}
	return Result{Status: StatusFailed, Err: err}
}

// Accepted collapses completed and pending into success for callers that only
// care whether the request was issued.
func (r Result) Accepted() error {
	if r.Status == StatusFailed {
		if r.Err == nil {
			return ErrTransport
		}
		return r.Err
	}
	return nil
}

func (r Result) Pending() bool {
	return r.Status == StatusPending
}

// ResponseError is a non-ANY_OK response received from the controller.
type ResponseError struct {
	Instruction Instruction
	Code        ResponseCode
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Instruction, e.Code)
}

// Completion reports the genuine end of a command previously accepted as
// pending. For ADM_CREATE_PIPE, Pipe is the request record with ID set to the
// controller-assigned pipe id.
type Completion struct {
	Instruction Instruction
	PipeID      PipeID
	Pipe        *PipeInfo
	Err         error
}
