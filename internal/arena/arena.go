// Package arena implements the bulk-lifetime memory scope used by the
// reverse-mode tape.
//
// An Arena owns a set of typed bump pools (see Pool) and a list of objects
// that hold external resources and must be released when the arena is reset.
// Nothing allocated from an arena is ever freed individually: the whole scope
// is reset at once between independent forward/reverse passes, or rewound to
// a Mark when a nested scope ends.
//
// Architecture:
//   - Pool[T]: typed bump allocator, blocks grow geometrically and are reused
//   - Arena: ordered set of pools plus the cleanup registry
//   - Mark/Rewind: stack discipline for nested scopes
//
// An Arena is not safe for concurrent use. Concurrent evaluations each own an
// arena of their own.
package arena

import "fmt"

const (
	// DefaultInitialBlock is the element count of the first block of each pool.
	DefaultInitialBlock = 4096

	// DefaultGrowthFactor is the size ratio between consecutive blocks.
	DefaultGrowthFactor = 2.0
)

// Config controls block sizing and the memory ceiling of an arena.
type Config struct {
	InitialBlock int     // Elements in the first block of every pool
	GrowthFactor float64 // Size ratio between consecutive blocks (> 1)
	MaxBytes     int64   // Ceiling on reserved bytes; 0 means unlimited
}

// DefaultConfig returns the default arena configuration.
func DefaultConfig() Config {
	return Config{
		InitialBlock: DefaultInitialBlock,
		GrowthFactor: DefaultGrowthFactor,
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.InitialBlock <= 0 {
		return fmt.Errorf("arena: initial block must be positive, got %d", c.InitialBlock)
	}
	if c.GrowthFactor <= 1 {
		return fmt.Errorf("arena: growth factor must be > 1, got %g", c.GrowthFactor)
	}
	if c.MaxBytes < 0 {
		return fmt.Errorf("arena: max bytes must be >= 0, got %d", c.MaxBytes)
	}
	return nil
}

// Releaser is implemented by auxiliary objects that own resources the bulk
// pool release cannot reclaim. Release runs once, when the arena is reset or
// rewound past the point the object was registered.
type Releaser interface {
	Release()
}

// Arena is a bulk-lifetime allocation scope.
type Arena struct {
	cfg      Config
	pools    []resettable
	floats   *Pool[float64]
	cleanups []Releaser
	reserved int64
}

// Mark records the state of an arena so that it can be rewound later.
type Mark struct {
	pools    []poolMark
	cleanups int
}

// forPool returns the cursor of the pool at index idx. Pools attached after
// the mark was taken start at the beginning.
func (m Mark) forPool(idx int) poolMark {
	if idx >= len(m.pools) {
		return poolMark{}
	}
	return m.pools[idx]
}

// Stats describes the memory held by an arena.
type Stats struct {
	Blocks   int   // Backing blocks across all pools
	Reserved int64 // Bytes reserved by backing blocks
	Used     int64 // Bytes handed out since the last reset
	Cleanups int   // Registered releasers pending
}

// New creates an arena. It panics if cfg is invalid.
func New(cfg Config) *Arena {
	if err := cfg.Validate(); err != nil {
		panic(err.Error())
	}
	a := &Arena{cfg: cfg}
	a.floats = Attach[float64](a)
	return a
}

// Attach creates a typed pool owned by a. The pool is reset, marked and
// rewound together with the arena.
func Attach[T any](a *Arena) *Pool[T] {
	p := newPool[T](a)
	a.pools = append(a.pools, p)
	return p
}

// Floats returns n zeroed float64 slots, e.g. a partials buffer.
func (a *Arena) Floats(n int) []float64 {
	return a.floats.AllocSlice(n)
}

// RegisterCleanup schedules r.Release for the next Reset (or Rewind past this
// point). Releasers run in registration order.
func (a *Arena) RegisterCleanup(r Releaser) {
	a.cleanups = append(a.cleanups, r)
}

// Reset releases registered objects in registration order and reclaims every
// pool. Backing blocks are kept for the next pass.
func (a *Arena) Reset() {
	a.release(0)
	for _, p := range a.pools {
		p.reset()
	}
}

// Mark captures the current allocation state.
func (a *Arena) Mark() Mark {
	m := Mark{
		pools:    make([]poolMark, len(a.pools)),
		cleanups: len(a.cleanups),
	}
	for i, p := range a.pools {
		m.pools[i] = p.mark()
	}
	return m
}

// Rewind releases objects registered after m and reclaims everything
// allocated after m. Marks taken after m become invalid.
func (a *Arena) Rewind(m Mark) {
	if m.cleanups > len(a.cleanups) {
		panic(fmt.Sprintf("arena: rewind to stale mark (%d cleanups, have %d)", m.cleanups, len(a.cleanups)))
	}
	a.release(m.cleanups)
	for i, p := range a.pools {
		if i < len(m.pools) {
			p.rewind(m.pools[i])
		} else {
			p.reset()
		}
	}
}

// Stats reports the current memory footprint.
func (a *Arena) Stats() Stats {
	s := Stats{Cleanups: len(a.cleanups)}
	for _, p := range a.pools {
		blocks, reserved, used := p.stats()
		s.Blocks += blocks
		s.Reserved += int64(reserved)
		s.Used += int64(used)
	}
	return s
}

func (a *Arena) release(from int) {
	for i := from; i < len(a.cleanups); i++ {
		a.cleanups[i].Release()
		a.cleanups[i] = nil
	}
	a.cleanups = a.cleanups[:from]
}

// reserve accounts for a new backing block. Exceeding MaxBytes is fatal.
func (a *Arena) reserve(n uintptr) {
	a.reserved += int64(n)
	if a.cfg.MaxBytes > 0 && a.reserved > a.cfg.MaxBytes {
		panic(fmt.Sprintf("arena: out of memory (%d bytes reserved, limit %d)", a.reserved, a.cfg.MaxBytes))
	}
}
