package hci

import "fmt"

type HostID uint8

const (
	HostController HostID = 0x00
	TerminalHost   HostID = 0x01
	UICCHost       HostID = 0x02
)

func (h HostID) String() string {
	switch h {
	case HostController:
		return "host-controller"
	case TerminalHost:
		return "terminal-host"
	case UICCHost:
		return "uicc"
	default:
		return fmt.Sprintf("host(0x%02x)", uint8(h))
	}
}

// GateID values follow the PN544 gate assignment.
type GateID uint8

const (
	GateAdmin           GateID = 0x00
	GateIdentityMgmt    GateID = 0x05
	GateLinkMgmt        GateID = 0x06
	GateReaderB         GateID = 0x11
	GateISO15693        GateID = 0x12
	GateReaderA         GateID = 0x13
	GateReaderF         GateID = 0x14
	GateJewelReader     GateID = 0x15
	GateHIDReader       GateID = 0x16
	GateCETypeB         GateID = 0x21
	GateCETypeA         GateID = 0x23
	GateNFCIP1Initiator GateID = 0x30
	GateNFCIP1Target    GateID = 0x31
	GateConnectivity    GateID = 0x41
	GateDeviceMgmt      GateID = 0x90
	GateWIMgmt          GateID = 0x93
	GatePollingLoop     GateID = 0x94
	GateSWPMgmt         GateID = 0xA0
	GateUnknown         GateID = 0xFF
)

var gateNames = map[GateID]string{
	GateAdmin:           "admin",
	GateIdentityMgmt:    "identity-mgmt",
	GateLinkMgmt:        "link-mgmt",
	GateReaderB:         "reader-b",
	GateISO15693:        "iso15693",
	GateReaderA:         "reader-a",
	GateReaderF:         "reader-f",
	GateJewelReader:     "jewel",
	GateHIDReader:       "hid-reader",
	GateCETypeB:         "ce-type-b",
	GateCETypeA:         "ce-type-a",
	GateNFCIP1Initiator: "nfcip1-initiator",
	GateNFCIP1Target:    "nfcip1-target",
	GateConnectivity:    "connectivity",
	GateDeviceMgmt:      "device-mgmt",
	GateWIMgmt:          "wi-mgmt",
	GatePollingLoop:     "polling-loop",
	GateSWPMgmt:         "swp-mgmt",
	GateUnknown:         "unknown",
}

func (g GateID) String() string {
	if n, ok := gateNames[g]; ok {
		return n
	}
	return fmt.Sprintf("gate(0x%02x)", uint8(g))
}

// Known reports whether g is one of the gates this stack can manage.
func (g GateID) Known() bool {
	_, ok := gateNames[g]
	return ok && g != GateUnknown
}

// ParseGateID resolves a gate by the name returned from GateID.String.
func ParseGateID(name string) (GateID, error) {
	for g, n := range gateNames {
		if n == name {
			return g, nil
		}
	}
	return GateUnknown, fmt.Errorf("unknown gate %q", name)
}

type PipeID uint8

const (
	LinkMgmtPipe    PipeID = 0x00
	AdminPipe       PipeID = 0x01
	DynamicPipeBase PipeID = 0x02
	MaxPipe         PipeID = 0x6F
	UnknownPipeID   PipeID = 0xFF
)

// Dynamic reports whether id lies in the range assigned by create-pipe.
func (id PipeID) Dynamic() bool {
	return id >= DynamicPipeBase && id <= MaxPipe
}

type Endpoint struct {
	Host HostID
	Gate GateID
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s/%s", e.Host, e.Gate)
}

// PipeInfo is the pipe record exchanged with the admin gate. ID is
// UnknownPipeID until the controller has assigned one.
type PipeInfo struct {
	Source Endpoint
	Dest   Endpoint
	ID     PipeID
}

func (p *PipeInfo) String() string {
	return fmt.Sprintf("pipe(0x%02x %s -> %s)", uint8(p.ID), p.Source, p.Dest)
}
