package pipe

import (
	"errors"
	"testing"

	"github.com/muxable/nfchci/pkg/hci"
)

func TestDefaultCatalog(t *testing.T) {
	for _, tc := range []struct {
		name     string
		features Features
		want     []hci.GateID
	}{
		{
			name: "Minimal",
			want: []hci.GateID{hci.GateIdentityMgmt, hci.GateDeviceMgmt, hci.GatePollingLoop, hci.GateReaderA},
		},
		{
			name:     "Readers",
			features: Features{TypeB: true, Felica: true, Jewel: true},
			want: []hci.GateID{
				hci.GateIdentityMgmt, hci.GateDeviceMgmt, hci.GatePollingLoop, hci.GateReaderA,
				hci.GateReaderB, hci.GateReaderF, hci.GateJewelReader,
			},
		},
		{
			name:     "Emulation",
			features: Features{P2P: true, HostEmulation: true, SWP: true},
			want: []hci.GateID{
				hci.GateIdentityMgmt, hci.GateDeviceMgmt, hci.GatePollingLoop, hci.GateReaderA,
				hci.GateNFCIP1Initiator, hci.GateNFCIP1Target, hci.GateCETypeA, hci.GateCETypeB,
				hci.GateSWPMgmt,
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultCatalog(tc.features)
			if err := c.validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			got := c.Gates()
			if len(got) != len(tc.want) {
				t.Fatalf("Gates = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("Gates[%d] = %s, want %s", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestCatalogValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		catalog Catalog
	}{
		{"Empty", Catalog{}},
		{"IdentityNotFirst", Catalog{{Gate: hci.GateDeviceMgmt, Enabled: true}, {Gate: hci.GateIdentityMgmt, Enabled: true}}},
		{"IdentityDisabled", Catalog{{Gate: hci.GateIdentityMgmt}}},
		{"Duplicate", Catalog{{Gate: hci.GateIdentityMgmt, Enabled: true}, {Gate: hci.GateReaderA, Enabled: true}, {Gate: hci.GateReaderA}}},
		{"UnknownGate", Catalog{{Gate: hci.GateIdentityMgmt, Enabled: true}, {Gate: hci.GateUnknown, Enabled: true}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.catalog.validate(); !errors.Is(err, ErrInvalidHciSequence) {
				t.Errorf("validate = %v, want %v", err, ErrInvalidHciSequence)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	for _, tc := range []struct {
		state State
		want  string
	}{
		{StateCreateIdentityMgmt, "create-identity-mgmt"},
		{StateCreateCETypeA, "create-ce-type-a"},
		{StateDeleteAll, "delete-all"},
		{StateSequenceEnd, "sequence-end"},
		{State(0x200), "state(0x200)"},
	} {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(0x%x).String() = %q, want %q", uint16(tc.state), got, tc.want)
		}
	}
	if _, ok := StateSequenceEnd.Gate(); ok {
		t.Error("StateSequenceEnd must not name a gate")
	}
	if g, ok := StateCreateSWP.Gate(); !ok || g != hci.GateSWPMgmt {
		t.Errorf("StateCreateSWP.Gate() = %s, %v", g, ok)
	}
}
