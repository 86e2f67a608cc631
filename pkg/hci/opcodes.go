package hci

// ETSI TS 102 622, Section 5 (HCP message structure) and Section 6.1 (commands).

type MessageType uint8

const (
	MessageTypeCommand  MessageType = 0x00
	MessageTypeEvent    MessageType = 0x01
	MessageTypeResponse MessageType = 0x02
)

type Instruction uint8

const (
	InstructionSetParameter Instruction = 0x01
	InstructionGetParameter Instruction = 0x02
	InstructionOpenPipe     Instruction = 0x03
	InstructionClosePipe    Instruction = 0x04

	InstructionCreatePipe        Instruction = 0x10
	InstructionDeletePipe        Instruction = 0x11
	InstructionNotifyPipeCreated Instruction = 0x12
	InstructionNotifyPipeDeleted Instruction = 0x13
	InstructionClearAllPipe      Instruction = 0x14
	InstructionNotifyAllCleared  Instruction = 0x15
)

func (i Instruction) String() string {
	switch i {
	case InstructionSetParameter:
		return "ANY_SET_PARAMETER"
	case InstructionGetParameter:
		return "ANY_GET_PARAMETER"
	case InstructionOpenPipe:
		return "ANY_OPEN_PIPE"
	case InstructionClosePipe:
		return "ANY_CLOSE_PIPE"
	case InstructionCreatePipe:
		return "ADM_CREATE_PIPE"
	case InstructionDeletePipe:
		return "ADM_DELETE_PIPE"
	case InstructionNotifyPipeCreated:
		return "ADM_NOTIFY_PIPE_CREATED"
	case InstructionNotifyPipeDeleted:
		return "ADM_NOTIFY_PIPE_DELETED"
	case InstructionClearAllPipe:
		return "ADM_CLEAR_ALL_PIPE"
	case InstructionNotifyAllCleared:
		return "ADM_NOTIFY_ALL_PIPE_CLEARED"
	default:
		return "UNKNOWN"
	}
}

// IsAdmin reports whether the instruction is only valid on the admin pipe.
func (i Instruction) IsAdmin() bool {
	return i >= InstructionCreatePipe && i <= InstructionNotifyAllCleared
}

type ResponseCode uint8

const (
	ResponseOK               ResponseCode = 0x00
	ResponseNotConnected     ResponseCode = 0x01
	ResponseCmdParUnknown    ResponseCode = 0x02
	ResponseNOK              ResponseCode = 0x03
	ResponseNoPipesAvailable ResponseCode = 0x04
	ResponseRegParUnknown    ResponseCode = 0x05
	ResponsePipeNotOpened    ResponseCode = 0x06
	ResponseCmdNotSupported  ResponseCode = 0x07
	ResponseInhibited        ResponseCode = 0x08
	ResponseTimeout          ResponseCode = 0x09
	ResponseRegAccessDenied  ResponseCode = 0x0A
	ResponsePipeAccessDenied ResponseCode = 0x0B
)

func (c ResponseCode) String() string {
	switch c {
	case ResponseOK:
		return "ANY_OK"
	case ResponseNotConnected:
		return "ANY_E_NOT_CONNECTED"
	case ResponseCmdParUnknown:
		return "ANY_E_CMD_PAR_UNKNOWN"
	case ResponseNOK:
		return "ANY_E_NOK"
	case ResponseNoPipesAvailable:
		return "ADM_E_NO_PIPES_AVAILABLE"
	case ResponseRegParUnknown:
		return "ANY_E_REG_PAR_UNKNOWN"
	case ResponsePipeNotOpened:
		return "ANY_E_PIPE_NOT_OPENED"
	case ResponseCmdNotSupported:
		return "ANY_E_CMD_NOT_SUPPORTED"
	case ResponseInhibited:
		return "ANY_E_INHIBITED"
	case ResponseTimeout:
		return "ANY_E_TIMEOUT"
	case ResponseRegAccessDenied:
		return "ANY_E_REG_ACCESS_DENIED"
	case ResponsePipeAccessDenied:
		return "ANY_E_PIPE_ACCESS_DENIED"
	default:
		return "UNKNOWN"
	}
}
