package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/sleight/internal/call"
	"github.com/roach88/sleight/internal/inorder"
	"github.com/roach88/sleight/internal/misuse"
	"github.com/roach88/sleight/internal/progress"
	"github.com/roach88/sleight/internal/registry"
	"github.com/roach88/sleight/internal/trace"
	"github.com/roach88/sleight/internal/verify"
)

// Core holds the engine state shared between test contexts.
type Core struct {
	registry *registry.Registry
	clock    *call.Clock
	logger   *slog.Logger

	// archive is optional; nil disables archival entirely.
	archive *trace.Archive
	session string
}

// Option configures a Core.
type Option func(*config)

type config struct {
	gen     registry.HandleGenerator
	clock   *call.Clock
	logger  *slog.Logger
	archive *trace.Archive
	session string
}

// WithHandleGenerator replaces the UUIDv7 mock handle generator.
// Tests use a fixed generator for deterministic traces.
func WithHandleGenerator(gen registry.HandleGenerator) Option {
	return func(c *config) {
		c.gen = gen
	}
}

// WithClock replaces the global logical clock.
func WithClock(clock *call.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithArchive enables interaction archival to the given archive.
// A UUIDv7 session token identifies this run; pass a non-empty session to
// override (tests use fixed tokens).
func WithArchive(archive *trace.Archive, session string) Option {
	return func(c *config) {
		c.archive = archive
		c.session = session
	}
}

// New creates a Core with the given options.
func New(opts ...Option) *Core {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.clock == nil {
		cfg.clock = call.NewClock()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.archive != nil && cfg.session == "" {
		cfg.session = uuid.Must(uuid.NewV7()).String()
	}

	return &Core{
		registry: registry.New(cfg.gen),
		clock:    cfg.clock,
		logger:   cfg.logger,
		archive:  cfg.archive,
		session:  cfg.session,
	}
}

// NewSession creates a per-context handle onto this core.
// Each logical test context must use its own Session; Sessions share the
// registry and clock but nothing else.
func (c *Core) NewSession() *Session {
	return &Session{
		core:     c,
		progress: progress.New(),
	}
}

// Registry exposes the mock registry for the proxy collaborator.
func (c *Core) Registry() *registry.Registry {
	return c.registry
}

// Clock returns the engine's logical clock.
// Used by tooling to stamp or inspect sequence positions.
func (c *Core) Clock() *call.Clock {
	return c.clock
}

// IsMock reports whether x is a mock created by this engine.
// Total for arbitrary input including nil; never panics.
func (c *Core) IsMock(x any) bool {
	if x == nil {
		return false
	}
	return c.registry.IsMock(x)
}

// ArchiveSession returns the archive session token, or "" when archival is
// disabled.
func (c *Core) ArchiveSession() string {
	return c.session
}

// requireMock resolves an argument that must be a registered mock.
// nil and the zero handle fail with NULL_MOCK_TARGET; everything else that
// is not a registered handle fails with NOT_A_MOCK.
func (c *Core) requireMock(x any) (*registry.Entry, error) {
	if x == nil {
		return nil, misuse.NullMockTarget()
	}

	var h registry.Handle
	switch v := x.(type) {
	case registry.Handle:
		h = v
	case string:
		h = registry.Handle(v)
	default:
		return nil, misuse.NotAMock(fmt.Sprintf("%T", x))
	}

	if h == "" {
		return nil, misuse.NullMockTarget()
	}
	entry, ok := c.registry.Lookup(h)
	if !ok {
		return nil, misuse.NotAMock(fmt.Sprintf("%T", x))
	}
	return entry, nil
}

// snapshotFor returns a fresh verification snapshot of the target's log.
// Lazy modes call this repeatedly so each poll observes the latest stable
// prefix.
func (c *Core) snapshotFor(target string, want *call.Description) func() verify.Data {
	return func() verify.Data {
		d := verify.Data{MockID: target, Want: want}
		if entry, ok := c.registry.Lookup(registry.Handle(target)); ok {
			d.All = entry.Log().Snapshot()
		}
		return d
	}
}

// mergedFor builds the sequence-ordered merged view over an ordered scope's
// mocks, excluding ignored invocations.
func (c *Core) mergedFor(octx *inorder.Context) []*call.Invocation {
	snapshots := make([][]*call.Invocation, 0, len(octx.Mocks()))
	for _, m := range octx.Mocks() {
		if entry, ok := c.registry.Lookup(registry.Handle(m)); ok {
			snapshots = append(snapshots, entry.Log().Snapshot())
		}
	}
	return inorder.Merged(snapshots...)
}

// archiveRecord appends an invocation to the archive, best-effort.
// Recording never fails the protocol operation; archival errors are logged
// and dropped.
func (c *Core) archiveRecord(inv *call.Invocation, mockName string) {
	if c.archive == nil {
		return
	}

	id, err := call.ID(inv.MockID, inv.Desc, inv.Seq)
	if err != nil {
		// Arguments outside the canonical value set cannot be content-addressed.
		c.logger.Warn("interaction not archivable",
			"mock", inv.MockID,
			"method", inv.Desc.Method,
			"error", err,
		)
		return
	}
	hash, err := call.DescriptionHash(inv.Desc)
	if err != nil {
		hash = ""
	}

	args := renderArgs(inv.Desc.Args)

	rec := trace.Interaction{
		ID:       id,
		Session:  c.session,
		MockID:   inv.MockID,
		MockName: mockName,
		Seq:      inv.Seq,
		Method:   inv.Desc.Method,
		Args:     args,
		CallHash: hash,
	}
	if err := c.archive.Record(context.Background(), rec); err != nil {
		c.logger.Warn("interaction archive write failed",
			"mock", inv.MockID,
			"seq", inv.Seq,
			"error", err,
		)
	}
}

// FlushArchive refreshes the archived marks (stubbed/verified/ignored) for
// every registered mock's log. Called at test-context teardown so the
// archived session reflects final verification state. Best-effort.
func (c *Core) FlushArchive() {
	if c.archive == nil {
		return
	}

	for _, h := range c.registry.Handles() {
		entry, ok := c.registry.Lookup(h)
		if !ok {
			continue
		}
		for _, inv := range entry.Log().Snapshot() {
			id, err := call.ID(inv.MockID, inv.Desc, inv.Seq)
			if err != nil {
				continue
			}
			err = c.archive.UpdateMarks(context.Background(), id,
				inv.Stub() != nil, inv.Verified(), inv.Ignored())
			if err != nil {
				c.logger.Warn("archive mark update failed",
					"mock", inv.MockID,
					"seq", inv.Seq,
					"error", err,
				)
			}
		}
	}
}

// renderArgs produces the archived argument rendering: canonical JSON when
// the values allow it, debug formatting otherwise.
func renderArgs(args []any) string {
	normalized := args
	if normalized == nil {
		normalized = []any{}
	}
	if b, err := call.MarshalCanonical(normalized); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", args)
}
