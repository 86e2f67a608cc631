package hci

import (
	"errors"
	"io"
)

type Packet interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// ErrChained is returned for fragmented HCP messages; this stack only sends
// and accepts single-fragment messages.
var ErrChained = errors.New("chained hcp message")

const chainBit = 0x80

func header(pipe PipeID, t MessageType, code uint8) []byte {
	return []byte{chainBit | byte(pipe&0x7F), byte(t)<<6 | code&0x3F}
}

func parseHeader(buf []byte) (PipeID, MessageType, uint8, error) {
	if len(buf) < 2 {
		return 0, 0, 0, io.ErrShortBuffer
	}
	if buf[0]&chainBit == 0 {
		return 0, 0, 0, ErrChained
	}
	return PipeID(buf[0] & 0x7F), MessageType(buf[1] >> 6), buf[1] & 0x3F, nil
}

func Unmarshal(buf []byte) (Packet, error) {
	_, t, _, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	var p Packet
	switch t {
	case MessageTypeCommand:
		p = &CommandPacket{}
	case MessageTypeEvent:
		p = &EventPacket{}
	case MessageTypeResponse:
		p = &ResponsePacket{}
	default:
		return nil, errors.New("unsupported message type")
	}
	if err := p.Unmarshal(buf); err != nil {
		return nil, err
	}
	return p, nil
}

type CommandPacket struct {
	Pipe        PipeID
	Instruction Instruction
	Payload     []byte
}

func (p *CommandPacket) Marshal() ([]byte, error) {
	if p.Pipe > 0x7F {
		return nil, errors.New("pipe id out of range")
	}
	return append(header(p.Pipe, MessageTypeCommand, uint8(p.Instruction)), p.Payload...), nil
}

func (p *CommandPacket) Unmarshal(buf []byte) error {
	pipe, t, code, err := parseHeader(buf)
	if err != nil {
		return err
	}
	if t != MessageTypeCommand {
		return errors.New("incorrect packet")
	}
	p.Pipe = pipe
	p.Instruction = Instruction(code)
	p.Payload = buf[2:]
	return nil
}

type ResponsePacket struct {
	Pipe    PipeID
	Code    ResponseCode
	Payload []byte
}

func (p *ResponsePacket) Marshal() ([]byte, error) {
	return append(header(p.Pipe, MessageTypeResponse, uint8(p.Code)), p.Payload...), nil
}

func (p *ResponsePacket) Unmarshal(buf []byte) error {
	pipe, t, code, err := parseHeader(buf)
	if err != nil {
		return err
	}
	if t != MessageTypeResponse {
		return errors.New("incorrect packet")
	}
	p.Pipe = pipe
	p.Code = ResponseCode(code)
	p.Payload = buf[2:]
	return nil
}

type EventPacket struct {
	Pipe    PipeID
	Event   uint8
	Payload []byte
}

func (p *EventPacket) Marshal() ([]byte, error) {
	return append(header(p.Pipe, MessageTypeEvent, p.Event), p.Payload...), nil
}

func (p *EventPacket) Unmarshal(buf []byte) error {
	pipe, t, code, err := parseHeader(buf)
	if err != nil {
		return err
	}
	if t != MessageTypeEvent {
		return errors.New("incorrect packet")
	}
	p.Pipe = pipe
	p.Event = code
	p.Payload = buf[2:]
	return nil
}

// NewCreatePipeCommand builds ADM_CREATE_PIPE for p. The payload carries the
// source gate and the destination endpoint; the source host is implied by the
// sender.
func NewCreatePipeCommand(p *PipeInfo) *CommandPacket {
	return &CommandPacket{
		Pipe:        AdminPipe,
		Instruction: InstructionCreatePipe,
		Payload:     []byte{byte(p.Source.Gate), byte(p.Dest.Host), byte(p.Dest.Gate)},
	}
}

func NewDeletePipeCommand(id PipeID) *CommandPacket {
	return &CommandPacket{
		Pipe:        AdminPipe,
		Instruction: InstructionDeletePipe,
		Payload:     []byte{byte(id)},
	}
}

func NewClearAllPipeCommand() *CommandPacket {
	return &CommandPacket{Pipe: AdminPipe, Instruction: InstructionClearAllPipe}
}

// NewGenericCommand addresses an argument-less instruction to a pipe.
func NewGenericCommand(id PipeID, ins Instruction) *CommandPacket {
	return &CommandPacket{Pipe: id, Instruction: ins}
}

// ParseCreatePipeResponse decodes the ANY_OK payload of ADM_CREATE_PIPE.
func ParseCreatePipeResponse(payload []byte) (*PipeInfo, error) {
	if len(payload) != 5 {
		return nil, io.ErrShortBuffer
	}
	return &PipeInfo{
		Source: Endpoint{Host: HostID(payload[0]), Gate: GateID(payload[1])},
		Dest:   Endpoint{Host: HostID(payload[2]), Gate: GateID(payload[3])},
		ID:     PipeID(payload[4]),
	}, nil
}

// CreatePipeResponsePayload is the inverse of ParseCreatePipeResponse.
func CreatePipeResponsePayload(p *PipeInfo) []byte {
	return []byte{
		byte(p.Source.Host), byte(p.Source.Gate),
		byte(p.Dest.Host), byte(p.Dest.Gate),
		byte(p.ID),
	}
}
