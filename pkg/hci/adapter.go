package hci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusy is returned when a command is already outstanding on the pipe.
var ErrBusy = errors.New("command outstanding on pipe")

type outstanding struct {
	instruction Instruction
	pipeID      PipeID
	pipe        *PipeInfo
}

// Adapter issues HCP commands to the controller and reports their completion
// asynchronously. At most one command is outstanding per pipe.
type Adapter struct {
	conn *Conn

	onCompletionLock sync.Mutex
	onCompletion     map[string]func(Completion)

	pendingLock sync.Mutex
	pending     map[PipeID]*outstanding

	done chan struct{}
	err  error
}

func NewAdapter(rwc io.ReadWriteCloser) *Adapter {
	a := &Adapter{
		conn:         &Conn{ReadWriteCloser: rwc},
		onCompletion: make(map[string]func(Completion)),
		pending:      make(map[PipeID]*outstanding),
		done:         make(chan struct{}),
	}
	go a.readLoop()
	return a
}

func (a *Adapter) readLoop() {
	defer close(a.done)
	for {
		p, err := a.conn.ReadPacket()
		if err != nil {
			if errors.Is(err, ErrChained) || errors.Is(err, io.ErrShortBuffer) {
				zap.L().Warn("dropping hcp message", zap.Error(err))
				continue
			}
			a.err = err
			a.failAll(err)
			return
		}
		switch p := p.(type) {
		case *ResponsePacket:
			a.handleResponse(p)
		case *CommandPacket:
			a.handleCommand(p)
		case *EventPacket:
			zap.L().Debug("hci event", zap.Uint8("pipe", uint8(p.Pipe)), zap.Uint8("event", p.Event))
		}
	}
}

func (a *Adapter) handleResponse(r *ResponsePacket) {
	a.pendingLock.Lock()
	o, ok := a.pending[r.Pipe]
	delete(a.pending, r.Pipe)
	a.pendingLock.Unlock()
	if !ok {
		zap.L().Warn("unsolicited response", zap.Uint8("pipe", uint8(r.Pipe)), zap.Stringer("code", r.Code))
		return
	}

	c := Completion{Instruction: o.instruction, PipeID: o.pipeID, Pipe: o.pipe}
	if r.Code != ResponseOK {
		c.Err = &ResponseError{Instruction: o.instruction, Code: r.Code}
		a.deliver(c)
		return
	}
	if o.instruction == InstructionCreatePipe {
		created, err := ParseCreatePipeResponse(r.Payload)
		if err != nil {
			c.Err = fmt.Errorf("%s response: %w", o.instruction, err)
		} else {
			o.pipe.ID = created.ID
			c.PipeID = created.ID
		}
	}
	a.deliver(c)
}

// handleCommand answers the admin notifications the controller sends to the
// terminal host's admin gate.
func (a *Adapter) handleCommand(p *CommandPacket) {
	code := ResponseOK
	switch p.Instruction {
	case InstructionNotifyPipeCreated, InstructionNotifyPipeDeleted, InstructionNotifyAllCleared:
		zap.L().Info("controller notification", zap.Stringer("instruction", p.Instruction), zap.Binary("payload", p.Payload))
	default:
		code = ResponseCmdNotSupported
	}
	if err := a.conn.WritePacket(&ResponsePacket{Pipe: p.Pipe, Code: code}); err != nil {
		zap.L().Warn("failed to answer controller command", zap.Error(err))
	}
}

func (a *Adapter) failAll(err error) {
	a.pendingLock.Lock()
	pending := a.pending
	a.pending = make(map[PipeID]*outstanding)
	a.pendingLock.Unlock()
	for _, o := range pending {
		a.deliver(Completion{Instruction: o.instruction, PipeID: o.pipeID, Pipe: o.pipe, Err: err})
	}
}

func (a *Adapter) deliver(c Completion) {
	a.onCompletionLock.Lock()
	cbs := make([]func(Completion), 0, len(a.onCompletion))
	for _, cb := range a.onCompletion {
		cbs = append(cbs, cb)
	}
	a.onCompletionLock.Unlock()
	for _, cb := range cbs {
		cb(c)
	}
}

// OnCompletion registers cb for every completion until the returned cancel
// function is called.
func (a *Adapter) OnCompletion(cb func(Completion)) func() {
	id := uuid.NewString()
	a.onCompletionLock.Lock()
	a.onCompletion[id] = cb
	a.onCompletionLock.Unlock()
	return func() {
		a.onCompletionLock.Lock()
		delete(a.onCompletion, id)
		a.onCompletionLock.Unlock()
	}
}

func (a *Adapter) send(o *outstanding, p *CommandPacket) Result {
	select {
	case <-a.done:
		if a.err != nil {
			return Failed(a.err)
		}
		return Failed(io.EOF)
	default:
	}
	a.pendingLock.Lock()
	if _, busy := a.pending[p.Pipe]; busy {
		a.pendingLock.Unlock()
		return Failed(ErrBusy)
	}
	a.pending[p.Pipe] = o
	a.pendingLock.Unlock()

	if err := a.conn.WritePacket(p); err != nil {
		a.pendingLock.Lock()
		delete(a.pending, p.Pipe)
		a.pendingLock.Unlock()
		return Failed(err)
	}
	return Pending()
}

// SendAdmin issues an administrative command on the admin pipe.
func (a *Adapter) SendAdmin(ins Instruction, p *PipeInfo) Result {
	var cmd *CommandPacket
	switch ins {
	case InstructionCreatePipe:
		if p == nil {
			return Failed(errors.New("create pipe without pipe info"))
		}
		cmd = NewCreatePipeCommand(p)
	case InstructionDeletePipe:
		if p == nil {
			return Failed(errors.New("delete pipe without pipe info"))
		}
		cmd = NewDeletePipeCommand(p.ID)
	case InstructionClearAllPipe:
		cmd = NewClearAllPipeCommand()
	default:
		return Failed(fmt.Errorf("%s is not an admin command", ins))
	}
	o := &outstanding{instruction: ins, pipeID: AdminPipe, pipe: p}
	if p != nil {
		o.pipeID = p.ID
	}
	return a.send(o, cmd)
}

// SendGeneric issues an argument-less command addressed to pipe id.
func (a *Adapter) SendGeneric(id PipeID, ins Instruction) Result {
	if ins.IsAdmin() {
		return Failed(fmt.Errorf("%s is an admin command", ins))
	}
	return a.send(&outstanding{instruction: ins, pipeID: id}, NewGenericCommand(id, ins))
}

// Do issues ins and blocks until its completion arrives or ctx is done.
func (a *Adapter) Do(ctx context.Context, ins Instruction, p *PipeInfo) (Completion, error) {
	var target PipeID
	if !ins.IsAdmin() {
		if p == nil {
			return Completion{}, errors.New("generic command without pipe info")
		}
		target = p.ID
	}
	ch := make(chan Completion, 1)
	cancel := a.OnCompletion(func(c Completion) {
		if c.Instruction != ins {
			return
		}
		if !ins.IsAdmin() && c.PipeID != target {
			return
		}
		select {
		case ch <- c:
		default:
		}
	})
	defer cancel()

	var r Result
	if ins.IsAdmin() {
		r = a.SendAdmin(ins, p)
	} else {
		r = a.SendGeneric(target, ins)
	}
	if err := r.Accepted(); err != nil {
		return Completion{}, err
	}
	select {
	case c := <-ch:
		return c, c.Err
	case <-ctx.Done():
		return Completion{}, ctx.Err()
	}
}

// Done is closed when the read loop stops.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

func (a *Adapter) Close() error {
	return a.conn.Close()
}
