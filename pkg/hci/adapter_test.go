package hci

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// controller is the far end of a net.Pipe standing in for the device node.
type controller struct {
	t    *testing.T
	conn *Conn
}

func newTestAdapter(t *testing.T) (*Adapter, *controller) {
	t.Helper()
	host, ctrl := net.Pipe()
	a := NewAdapter(host)
	t.Cleanup(func() {
		a.Close()
		ctrl.Close()
	})
	return a, &controller{t: t, conn: &Conn{ReadWriteCloser: ctrl}}
}

func (c *controller) readCommand() *CommandPacket {
	p, err := c.conn.ReadPacket()
	if err != nil {
		c.t.Errorf("controller read: %v", err)
		return nil
	}
	cmd, ok := p.(*CommandPacket)
	if !ok {
		c.t.Errorf("controller got %T, want *CommandPacket", p)
		return nil
	}
	return cmd
}

func (c *controller) respond(pipe PipeID, code ResponseCode, payload []byte) {
	if err := c.conn.WritePacket(&ResponsePacket{Pipe: pipe, Code: code, Payload: payload}); err != nil {
		c.t.Errorf("controller write: %v", err)
	}
}

func TestAdapterCreatePipe(t *testing.T) {
	a, c := newTestAdapter(t)
	go func() {
		cmd := c.readCommand()
		if cmd == nil {
			return
		}
		if cmd.Pipe != AdminPipe || cmd.Instruction != InstructionCreatePipe {
			t.Errorf("command = %+v, want create-pipe on the admin pipe", cmd)
		}
		created := &PipeInfo{
			Source: Endpoint{Host: TerminalHost, Gate: GateID(cmd.Payload[0])},
			Dest:   Endpoint{Host: HostID(cmd.Payload[1]), Gate: GateID(cmd.Payload[2])},
			ID:     0x12,
		}
		c.respond(AdminPipe, ResponseOK, CreatePipeResponsePayload(created))
	}()

	p := &PipeInfo{
		Source: Endpoint{Host: TerminalHost, Gate: GatePollingLoop},
		Dest:   Endpoint{Host: HostController, Gate: GatePollingLoop},
		ID:     UnknownPipeID,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	comp, err := a.Do(ctx, InstructionCreatePipe, p)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if comp.PipeID != 0x12 || p.ID != 0x12 {
		t.Errorf("completion pipe = 0x%02x, record = 0x%02x, want 0x12", uint8(comp.PipeID), uint8(p.ID))
	}
	if comp.Pipe != p {
		t.Error("completion does not carry the request record")
	}
}

func TestAdapterResponseError(t *testing.T) {
	a, c := newTestAdapter(t)
	go func() {
		if c.readCommand() != nil {
			c.respond(AdminPipe, ResponseNoPipesAvailable, nil)
		}
	}()

	p := &PipeInfo{Dest: Endpoint{Host: HostController, Gate: GateReaderA}, ID: UnknownPipeID}
	_, err := a.Do(context.Background(), InstructionCreatePipe, p)
	var re *ResponseError
	if !errors.As(err, &re) || re.Code != ResponseNoPipesAvailable {
		t.Fatalf("Do = %v, want no-pipes-available response error", err)
	}
	if p.ID != UnknownPipeID {
		t.Errorf("record id = 0x%02x after rejected create", uint8(p.ID))
	}
}

func TestAdapterGenericCommand(t *testing.T) {
	a, c := newTestAdapter(t)
	go func() {
		cmd := c.readCommand()
		if cmd == nil {
			return
		}
		if cmd.Pipe != 0x12 || cmd.Instruction != InstructionOpenPipe {
			t.Errorf("command = %+v, want open-pipe on 0x12", cmd)
		}
		c.respond(0x12, ResponseOK, nil)
	}()

	comp, err := a.Do(context.Background(), InstructionOpenPipe, &PipeInfo{ID: 0x12})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if comp.Instruction != InstructionOpenPipe || comp.PipeID != 0x12 {
		t.Errorf("completion = %+v", comp)
	}
}

func TestAdapterBusy(t *testing.T) {
	a, c := newTestAdapter(t)
	read := make(chan struct{})
	go func() {
		c.readCommand()
		close(read)
	}()

	if r := a.SendGeneric(0x12, InstructionOpenPipe); !r.Pending() {
		t.Fatalf("first send = %+v, want pending", r)
	}
	<-read
	if r := a.SendGeneric(0x12, InstructionClosePipe); !errors.Is(r.Accepted(), ErrBusy) {
		t.Errorf("second send = %v, want %v", r.Accepted(), ErrBusy)
	}
	if r := a.SendGeneric(0x12, InstructionCreatePipe); r.Accepted() == nil {
		t.Error("admin instruction accepted as a generic command")
	}
}

func TestAdapterAnswersNotifications(t *testing.T) {
	_, c := newTestAdapter(t)
	for _, tc := range []struct {
		ins  Instruction
		want ResponseCode
	}{
		{InstructionNotifyPipeCreated, ResponseOK},
		{InstructionNotifyAllCleared, ResponseOK},
		{InstructionGetParameter, ResponseCmdNotSupported},
	} {
		cmd := &CommandPacket{Pipe: AdminPipe, Instruction: tc.ins, Payload: []byte{0x02, 0x41, 0x01, 0x41, 0x20}}
		if err := c.conn.WritePacket(cmd); err != nil {
			t.Fatalf("write: %v", err)
		}
		p, err := c.conn.ReadPacket()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		r, ok := p.(*ResponsePacket)
		if !ok || r.Code != tc.want {
			t.Errorf("%s answered with %+v, want %s", tc.ins, p, tc.want)
		}
	}
}

func TestAdapterFailsPendingOnClose(t *testing.T) {
	a, c := newTestAdapter(t)
	go func() {
		c.readCommand()
		c.conn.Close()
	}()

	_, err := a.Do(context.Background(), InstructionClearAllPipe, nil)
	if err == nil {
		t.Fatal("Do succeeded although the controller went away")
	}
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop")
	}
	if r := a.SendAdmin(InstructionClearAllPipe, nil); r.Accepted() == nil {
		t.Error("send accepted after the read loop stopped")
	}
}

func TestAdapterDoContext(t *testing.T) {
	a, c := newTestAdapter(t)
	go c.readCommand()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := a.Do(ctx, InstructionClearAllPipe, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do = %v, want %v", err, context.DeadlineExceeded)
	}
}
