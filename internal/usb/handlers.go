package usb

// HandlerFunc processes a single class- or vendor-specific request number.
// It returns the response bytes for the data stage, or nil for a
// zero-length ACK. A non-nil error stalls the endpoint.
type HandlerFunc func(setup *SetupPacket) ([]byte, error)

// HandlerTable implements the two-layer override contract of spec.md
// 4.F/4.G: an inherited map (the base class's defaults) merged with a local
// map (the subclass's overrides) at bind time, local wins. The mass-storage
// SCSI sub-dispatcher does not use this type; it keeps its own
// opcode-keyed table in devices/massstorage.
type HandlerTable struct {
	inherited map[uint8]HandlerFunc
	local     map[uint8]HandlerFunc
	effective map[uint8]HandlerFunc
	names     map[uint8]string
}

// NewHandlerTable builds a table from an inherited (base class) map and a
// local (subclass override) map. Either may be nil.
func NewHandlerTable(inherited, local map[uint8]HandlerFunc) *HandlerTable {
	t := &HandlerTable{
		inherited: inherited,
		local:     local,
		names:     map[uint8]string{},
	}
	t.build()
	return t
}

// build composes the effective table: inherited first, local second so it
// wins on conflicting keys. Called once at configuration-binding time, and
// again whenever Override or FillRange mutate the table.
func (t *HandlerTable) build() {
	t.effective = make(map[uint8]HandlerFunc, len(t.inherited)+len(t.local))
	for k, v := range t.inherited {
		t.effective[k] = v
	}
	for k, v := range t.local {
		t.effective[k] = v
	}
}

// Override installs or replaces a local handler for a request/opcode
// number, re-deriving the effective table so it keeps winning over any
// inherited entry.
func (t *HandlerTable) Override(n uint8, name string, fn HandlerFunc) {
	if t.local == nil {
		t.local = map[uint8]HandlerFunc{}
	}
	t.local[n] = fn
	t.names[n] = name
	t.build()
}

// FillRange installs the same handler for every number in [lo, hi]
// inclusive, used by stub classes (Wi-Fi, Bluetooth, RNDIS) that respond
// identically to an entire request range (spec.md 4.G).
func (t *HandlerTable) FillRange(lo, hi uint8, name string, fn HandlerFunc) {
	if t.local == nil {
		t.local = map[uint8]HandlerFunc{}
	}
	for n := int(lo); n <= int(hi); n++ {
		t.local[uint8(n)] = fn
		t.names[uint8(n)] = name
	}
	t.build()
}

// Lookup returns the effective handler for a request/opcode number.
func (t *HandlerTable) Lookup(n uint8) (HandlerFunc, bool) {
	fn, ok := t.effective[n]
	return fn, ok
}

// Name returns a human-readable handler name for logging, falling back to
// "handle_unknown" when none was registered via Override/FillRange.
func (t *HandlerTable) Name(n uint8) string {
	if name, ok := t.names[n]; ok {
		return name
	}
	return "handle_unknown"
}

// Copy returns a new table with independent inherited/local maps, so a
// caller may wrap handlers (e.g. for observation) without mutating the
// original in place (spec.md 9, third Open Question). No caller in this
// module copies or wraps a table.
func (t *HandlerTable) Copy() *HandlerTable {
	cp := &HandlerTable{
		inherited: make(map[uint8]HandlerFunc, len(t.inherited)),
		local:     make(map[uint8]HandlerFunc, len(t.local)),
		names:     make(map[uint8]string, len(t.names)),
	}
	for k, v := range t.inherited {
		cp.inherited[k] = v
	}
	for k, v := range t.local {
		cp.local[k] = v
	}
	for k, v := range t.names {
		cp.names[k] = v
	}
	cp.build()
	return cp
}

// Wrap returns a new table with every effective entry passed through fn,
// preserving Name() lookups for logging, without touching the original
// table (spec.md 9, "dynamic class generation"). The fingerprint harness
// observes requests through Device.Observer instead and does not call it.
func (t *HandlerTable) Wrap(fn func(name string, h HandlerFunc) HandlerFunc) *HandlerTable {
	cp := t.Copy()
	wrapped := make(map[uint8]HandlerFunc, len(cp.effective))
	for n, h := range cp.effective {
		wrapped[n] = fn(cp.Name(n), h)
	}
	cp.inherited = wrapped
	cp.local = nil
	cp.build()
	return cp
}

// Mutator substitutes a handler's return value, named so the fuzzing layer
// can target specific handlers while preserving the handler's identity for
// logging (spec.md 9, "mutable fuzz hook"). The default mutator is the
// identity function.
type Mutator func(response []byte, err error) ([]byte, error)

func identityMutator(response []byte, err error) ([]byte, error) {
	return response, err
}

// MutatorRegistry holds named mutators, consulted by name after every
// class or vendor handler returns.
type MutatorRegistry struct {
	mutators map[string]Mutator
}

// NewMutatorRegistry returns an empty registry; every name defaults to the
// identity mutator until Register is called.
func NewMutatorRegistry() *MutatorRegistry {
	return &MutatorRegistry{mutators: map[string]Mutator{}}
}

// Register installs a mutator for a named mutable handler.
func (r *MutatorRegistry) Register(name string, m Mutator) {
	r.mutators[name] = m
}

// Apply runs the named mutator over a handler's result, or the identity
// mutator if none was registered.
func (r *MutatorRegistry) Apply(name string, response []byte, err error) ([]byte, error) {
	if m, ok := r.mutators[name]; ok {
		return m(response, err)
	}
	return identityMutator(response, err)
}
