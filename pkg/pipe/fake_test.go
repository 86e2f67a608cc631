package pipe

import (
	"context"
	"sync"
	"testing"

	"github.com/muxable/nfchci/pkg/hci"
)

type sentCommand struct {
	Instruction hci.Instruction
	Dest        hci.Endpoint
	PipeID      hci.PipeID
}

// fakeTransport accepts every command as pending unless fail names it.
type fakeTransport struct {
	mu    sync.Mutex
	sent  []sentCommand
	fail  map[hci.Instruction]error
	pipes []*hci.PipeInfo // records passed to create
}

func (f *fakeTransport) SendAdmin(ins hci.Instruction, p *hci.PipeInfo) hci.Result {
	c := sentCommand{Instruction: ins, PipeID: hci.UnknownPipeID}
	if p != nil {
		c.Dest = p.Dest
		c.PipeID = p.ID
	}
	if ins == hci.InstructionCreatePipe {
		f.mu.Lock()
		f.pipes = append(f.pipes, p)
		f.mu.Unlock()
	}
	return f.record(c)
}

func (f *fakeTransport) SendGeneric(id hci.PipeID, ins hci.Instruction) hci.Result {
	return f.record(sentCommand{Instruction: ins, PipeID: id})
}

func (f *fakeTransport) record(c sentCommand) hci.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if err := f.fail[c.Instruction]; err != nil {
		return hci.Failed(err)
	}
	return hci.Pending()
}

func (f *fakeTransport) commands(ins hci.Instruction) []sentCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentCommand
	for _, c := range f.sent {
		if c.Instruction == ins {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) createdGates() []hci.GateID {
	var gates []hci.GateID
	for _, c := range f.commands(hci.InstructionCreatePipe) {
		gates = append(gates, c.Dest.Gate)
	}
	return gates
}

// asyncTransport answers every accepted admin command from another goroutine,
// the way the controller does.
type asyncTransport struct {
	fakeTransport

	cbMu sync.Mutex
	cbs  map[int]func(hci.Completion)
	n    int

	nextID hci.PipeID
	code   hci.ResponseCode
	silent bool
	// noise unrelated completions precede every answer.
	noise int
}

func newAsyncTransport(firstID hci.PipeID) *asyncTransport {
	return &asyncTransport{cbs: make(map[int]func(hci.Completion)), nextID: firstID}
}

func (a *asyncTransport) OnCompletion(cb func(hci.Completion)) func() {
	a.cbMu.Lock()
	defer a.cbMu.Unlock()
	id := a.n
	a.n++
	a.cbs[id] = cb
	return func() {
		a.cbMu.Lock()
		delete(a.cbs, id)
		a.cbMu.Unlock()
	}
}

func (a *asyncTransport) SendAdmin(ins hci.Instruction, p *hci.PipeInfo) hci.Result {
	r := a.fakeTransport.SendAdmin(ins, p)
	if r.Accepted() != nil || a.silent {
		return r
	}
	c := hci.Completion{Instruction: ins, PipeID: hci.AdminPipe, Pipe: p}
	if a.code != hci.ResponseOK {
		c.Err = &hci.ResponseError{Instruction: ins, Code: a.code}
	} else if ins == hci.InstructionCreatePipe {
		c.PipeID = a.nextID
		a.nextID++
	}
	a.cbMu.Lock()
	cbs := make([]func(hci.Completion), 0, len(a.cbs))
	for _, cb := range a.cbs {
		cbs = append(cbs, cb)
	}
	a.cbMu.Unlock()
	noise := a.noise
	go func() {
		for i := 0; i < noise; i++ {
			for _, cb := range cbs {
				cb(hci.Completion{Instruction: hci.InstructionOpenPipe, PipeID: hci.PipeID(0x10 + i%0x60)})
			}
		}
		for _, cb := range cbs {
			cb(c)
		}
	}()
	return r
}

type fakeResources struct {
	inits     []hci.GateID
	updates   map[hci.GateID]hci.PipeID
	initErr   map[hci.GateID]error
	updateErr map[hci.GateID]error
}

func newFakeResources() *fakeResources {
	return &fakeResources{updates: make(map[hci.GateID]hci.PipeID)}
}

func (f *fakeResources) InitResources(g hci.GateID) error {
	if err := f.initErr[g]; err != nil {
		return err
	}
	f.inits = append(f.inits, g)
	return nil
}

func (f *fakeResources) UpdatePipeInfo(g hci.GateID, id hci.PipeID, p *hci.PipeInfo) error {
	if err := f.updateErr[g]; err != nil {
		return err
	}
	f.updates[g] = id
	return nil
}

type fakeOracle struct {
	reject map[hci.GateID]bool
	ce     bool
	err    error
	asked  []hci.GateID
}

func (f *fakeOracle) ValidGate(g hci.GateID) (bool, error) {
	f.asked = append(f.asked, g)
	if f.err != nil {
		return false, f.err
	}
	return !f.reject[g], nil
}

func (f *fakeOracle) SupportsCardEmulation() bool { return f.ce }

type fakeDependents struct {
	calls []string
	fail  map[string]error
}

func (f *fakeDependents) call(name string) error {
	f.calls = append(f.calls, name)
	return f.fail[name]
}

func (f *fakeDependents) InitLinkMgmt() error { return f.call("link") }

func (f *fakeDependents) InitReaderMgmt() error { return f.call("reader") }

func (f *fakeDependents) InitEmulationMgmt() error { return f.call("emulation") }

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	closed bool
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return r.err
}

type fixture struct {
	session    *Session
	transport  *fakeTransport
	resources  *fakeResources
	oracle     *fakeOracle
	dependents *fakeDependents
	publisher  *recordingPublisher
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		transport:  &fakeTransport{},
		resources:  newFakeResources(),
		oracle:     &fakeOracle{},
		dependents: &fakeDependents{},
		publisher:  &recordingPublisher{},
	}
	if cfg.Transport == nil {
		cfg.Transport = f.transport
	}
	cfg.Resources = f.resources
	cfg.Oracle = f.oracle
	cfg.Dependents = f.dependents
	cfg.Publisher = f.publisher
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	f.session = s
	return f
}

// basicCatalog is identity, device management, polling loop and reader A.
func basicCatalog() Catalog {
	return Catalog{
		{Gate: hci.GateIdentityMgmt, Enabled: true},
		{Gate: hci.GateDeviceMgmt, Enabled: true},
		{Gate: hci.GatePollingLoop, Enabled: true},
		{Gate: hci.GateReaderA, Enabled: true},
	}
}
