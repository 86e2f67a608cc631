package pipe

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/muxable/nfchci/pkg/events"
	"github.com/muxable/nfchci/pkg/hci"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type InitMode uint8

const (
	InitNormal InitMode = iota
	// InitSelfTest tears the pipes down right after device management.
	InitSelfTest
)

func (m InitMode) String() string {
	if m == InitSelfTest {
		return "self-test"
	}
	return "normal"
}

// Mode is the HCI session mode negotiated with the controller.
type Mode uint8

const (
	ModeReset Mode = iota
	// ModeSession means the controller kept the pipes of a previous session.
	ModeSession
	ModeOverride
)

func (m Mode) String() string {
	switch m {
	case ModeSession:
		return "session"
	case ModeOverride:
		return "override"
	default:
		return "reset"
	}
}

// Config assembles a Session. A nil Catalog or Overrides selects the defaults;
// pass an empty Overrides slice to disable them.
type Config struct {
	Catalog   Catalog
	Overrides []Override

	GateVerify bool
	InitMode   InitMode
	Mode       Mode
	// EstablishSession skips create-pipe commands while Mode is ModeSession.
	EstablishSession bool

	Transport  Transport
	Resources  GateResources
	Oracle     Oracle
	Dependents Dependents
	Publisher  events.Publisher
}

// Session is the per-NFC-session context: it owns the pipe registry, the gate
// catalog and the sequencer cursor. It is not safe for concurrent use.
type Session struct {
	ID       string
	Registry *Registry
	Catalog  Catalog

	Overrides        []Override
	GateVerify       bool
	InitMode         InitMode
	Mode             Mode
	EstablishSession bool

	// State is the cursor driven by BringUp.
	State State

	transport  Transport
	resources  GateResources
	oracle     Oracle
	dependents Dependents
	publisher  events.Publisher

	visited map[hci.GateID]bool
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.Transport == nil || cfg.Resources == nil {
		return nil, ErrInvalidParameter
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog(Features{})
	}
	if err := cfg.Catalog.validate(); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if cfg.Overrides == nil {
		cfg.Overrides = DefaultOverrides()
	}
	if cfg.Oracle == nil {
		if cfg.GateVerify {
			return nil, fmt.Errorf("%w: gate verification needs an oracle", ErrInvalidParameter)
		}
		cfg.Oracle = allowAll{}
	}
	if cfg.Dependents == nil {
		cfg.Dependents = noDependents{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = &events.NoopPublisher{}
	}
	return &Session{
		ID:               uuid.NewString(),
		Registry:         NewRegistry(),
		Catalog:          cfg.Catalog,
		Overrides:        cfg.Overrides,
		GateVerify:       cfg.GateVerify,
		InitMode:         cfg.InitMode,
		Mode:             cfg.Mode,
		EstablishSession: cfg.EstablishSession,
		State:            StateCreateIdentityMgmt,
		transport:        cfg.Transport,
		resources:        cfg.Resources,
		oracle:           cfg.Oracle,
		dependents:       cfg.Dependents,
		publisher:        cfg.Publisher,
		visited:          make(map[hci.GateID]bool),
	}, nil
}

// Reset rewinds the cursor for a new bring-up. Installed pipes are kept.
func (s *Session) Reset() {
	s.State = StateCreateIdentityMgmt
	s.visited = make(map[hci.GateID]bool)
}

func (s *Session) publish(topic string, event any) {
	if err := s.publisher.Publish(context.Background(), topic, event); err != nil {
		zap.L().Warn("failed to publish pipe event", zap.String("topic", topic), zap.Error(err))
	}
}

// Close ends the session, releasing the publisher and any closable
// collaborators.
func (s *Session) Close() error {
	var err error
	if c, ok := s.resources.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	if c, ok := s.dependents.(io.Closer); ok && any(s.dependents) != any(s.resources) {
		err = multierr.Append(err, c.Close())
	}
	return multierr.Append(err, s.publisher.Close())
}
