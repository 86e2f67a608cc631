package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/muxable/nfchci/pkg/hci"
	"github.com/muxable/nfchci/pkg/pipe"
)

type Config struct {
	Device  string        `toml:"device"`   // HCIPIPE_DEVICE (default "/dev/pn544")
	NATSURL string        `toml:"nats_url"` // HCIPIPE_NATS_URL (optional, empty = no events)
	Timeout time.Duration `toml:"timeout"`  // HCIPIPE_TIMEOUT (default 5s)

	GateVerify       bool   `toml:"gate_verify"`
	InitMode         string `toml:"init_mode"` // "normal" or "self_test"
	Mode             string `toml:"mode"`      // "reset", "session" or "override"
	EstablishSession bool   `toml:"establish_session"`

	Features Features `toml:"features"`
	Identity Identity `toml:"identity"`
}

// Features selects the optional gates of the catalog.
type Features struct {
	TypeB         bool `toml:"type_b"`
	Felica        bool `toml:"felica"`
	Jewel         bool `toml:"jewel"`
	ISO15693      bool `toml:"iso15693"`
	HIDReader     bool `toml:"hid_reader"`
	P2P           bool `toml:"p2p"`
	HostEmulation bool `toml:"host_emulation"`
	WI            bool `toml:"wi"`
	SWP           bool `toml:"swp"`
}

// Identity seeds the gate validity oracle when the controller identity is
// known ahead of time.
type Identity struct {
	Gates      []string `toml:"gates"`
	ROMVersion string   `toml:"rom_version"`
}

// Load reads the TOML file at path, or at HCIPIPE_CONFIG when path is empty,
// and applies environment overrides. A missing HCIPIPE_CONFIG file is not an
// error.
func Load(path string) (*Config, error) {
	c := &Config{
		Device:   "/dev/pn544",
		Timeout:  5 * time.Second,
		InitMode: "normal",
		Mode:     "reset",
	}
	explicit := path != ""
	if !explicit {
		path = os.Getenv("HCIPIPE_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}

	c.Device = envOrDefault("HCIPIPE_DEVICE", c.Device)
	c.NATSURL = envOrDefault("HCIPIPE_NATS_URL", c.NATSURL)
	if v := os.Getenv("HCIPIPE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("HCIPIPE_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}

	if _, err := c.SequenceInitMode(); err != nil {
		return nil, err
	}
	if _, err := c.SessionMode(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) PipeFeatures() pipe.Features {
	return pipe.Features(c.Features)
}

func (c *Config) SequenceInitMode() (pipe.InitMode, error) {
	switch c.InitMode {
	case "", "normal":
		return pipe.InitNormal, nil
	case "self_test":
		return pipe.InitSelfTest, nil
	default:
		return pipe.InitNormal, fmt.Errorf("init_mode: unknown value %q", c.InitMode)
	}
}

func (c *Config) SessionMode() (pipe.Mode, error) {
	switch c.Mode {
	case "", "reset":
		return pipe.ModeReset, nil
	case "session":
		return pipe.ModeSession, nil
	case "override":
		return pipe.ModeOverride, nil
	default:
		return pipe.ModeReset, fmt.Errorf("mode: unknown value %q", c.Mode)
	}
}

// IdentityGates resolves the configured identity. ok is false when no
// identity was configured.
func (c *Config) IdentityGates() (gates []hci.GateID, rom uint8, ok bool, err error) {
	if len(c.Identity.Gates) == 0 {
		return nil, 0, false, nil
	}
	for _, name := range c.Identity.Gates {
		g, err := hci.ParseGateID(name)
		if err != nil {
			return nil, 0, false, fmt.Errorf("identity: %w", err)
		}
		gates = append(gates, g)
	}
	if c.Identity.ROMVersion != "" {
		v, err := strconv.ParseUint(c.Identity.ROMVersion, 0, 8)
		if err != nil {
			return nil, 0, false, fmt.Errorf("identity rom_version: %w", err)
		}
		rom = uint8(v)
	}
	return gates, rom, true, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
