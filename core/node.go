package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "mediachain/core/errors"
	"mediachain/core/events"
	"mediachain/core/genesis"
	"mediachain/core/state"
	"mediachain/core/types"
	"mediachain/crypto"
	"mediachain/native/common"
	"mediachain/native/delegation"
	"mediachain/native/identity"
	"mediachain/native/promotion"
	"mediachain/native/token"
	"mediachain/observability"
	telemetry "mediachain/observability/otel"
	"mediachain/storage"
)

var eventSequenceKey = []byte("chain/events/sequence")

// EventSink receives committed events. Errors are logged; the state change
// they describe is already durable.
type EventSink interface {
	Publish(ctx context.Context, records []types.EventRecord) error
}

// Options configures a Node.
type Options struct {
	// Operator becomes registry owner and ledger manager when the genesis
	// spec leaves those roles empty.
	Operator [20]byte
	Genesis  *genesis.Spec
	// AutoMine advances the height by one for every mutating operation,
	// failed ones included.
	AutoMine bool
	Limits   promotion.Limits
	Pauses   common.PauseView
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// Receipt describes a committed operation.
type Receipt struct {
	Height uint64              `json:"height"`
	Events []types.EventRecord `json:"events"`
}

// Node sequences every operation against a single journaled state manager.
type Node struct {
	db    storage.Database
	state *state.Manager

	ledger      *token.Engine
	identity    *identity.Registry
	delegations *delegation.Registry
	promotions  *promotion.Registry

	buffer   *events.Buffer
	sinks    []EventSink
	autoMine bool
	genesis  *genesis.Record

	height   uint64
	sequence uint64

	logger *slog.Logger
	tracer trace.Tracer

	stateMu sync.Mutex
	sinkMu  sync.RWMutex
}

// NewNode opens the state stored in db, applies genesis when the database is
// fresh and wires the native modules.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, errors.New("node: database must not be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer()
	}

	st := state.NewManager(db)
	ledger := token.NewEngine()
	ledger.SetState(st)

	var resolved *genesis.Resolved
	if opts.Genesis != nil {
		r, err := opts.Genesis.Resolve()
		if err != nil {
			return nil, fmt.Errorf("node: genesis: %w", err)
		}
		resolved = r
	}
	rec, applied, err := genesis.Apply(st, ledger, resolved, opts.Operator)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	if applied {
		logger.Info("genesis applied",
			slog.String("supply", rec.Supply.String()),
			slog.String("registry_owner", crypto.FormatAccount(rec.RegistryOwner)),
			slog.String("ledger_manager", crypto.FormatAccount(rec.LedgerManager)))
	}

	buffer := &events.Buffer{}
	ledger.SetEmitter(buffer)
	ledger.SetManager(rec.LedgerManager)
	ledger.SetPauses(opts.Pauses)

	ids := identity.NewRegistry(st, rec.RegistryOwner)
	ids.SetEmitter(buffer)

	dels := delegation.NewRegistry(st)
	dels.SetEmitter(buffer)

	promos := promotion.NewRegistry(st, ledger, rec.RegistryOwner)
	promos.SetVerifier(ids)
	promos.SetDelegations(dels)
	promos.SetEmitter(buffer)
	promos.SetPauses(opts.Pauses)
	if opts.Limits != (promotion.Limits{}) {
		promos.SetLimits(opts.Limits)
	}

	if err := st.Commit(); err != nil {
		return nil, fmt.Errorf("node: commit genesis: %w", err)
	}
	height, err := st.Height()
	if err != nil {
		return nil, fmt.Errorf("node: load height: %w", err)
	}
	var sequence uint64
	if _, err := st.KVGet(eventSequenceKey, &sequence); err != nil {
		return nil, fmt.Errorf("node: load event sequence: %w", err)
	}
	observability.Node().SetHeight(height)

	return &Node{
		db:          db,
		state:       st,
		ledger:      ledger,
		identity:    ids,
		delegations: dels,
		promotions:  promos,
		buffer:      buffer,
		autoMine:    opts.AutoMine,
		genesis:     rec,
		height:      height,
		sequence:    sequence,
		logger:      logger.With(slog.String("component", "node")),
		tracer:      tracer,
	}, nil
}

// AddSink registers a consumer for committed events.
func (n *Node) AddSink(sink EventSink) {
	if sink == nil {
		return
	}
	n.sinkMu.Lock()
	n.sinks = append(n.sinks, sink)
	n.sinkMu.Unlock()
}

// Height returns the current sequencer height.
func (n *Node) Height() uint64 {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.height
}

// RegistryOwner returns the account allowed to upgrade the registries.
func (n *Node) RegistryOwner() [20]byte { return n.genesis.RegistryOwner }

// PromotionRegistry exposes the campaign registry handle for upgrades.
func (n *Node) PromotionRegistry() *promotion.Registry { return n.promotions }

// IdentityRegistry exposes the verification registry handle for upgrades.
func (n *Node) IdentityRegistry() *identity.Registry { return n.identity }

// Mine advances the height by blocks without executing anything.
func (n *Node) Mine(ctx context.Context, blocks uint64) (uint64, error) {
	if blocks == 0 {
		blocks = 1
	}
	_, span := n.tracer.Start(ctx, "node.chain_mine")
	defer span.End()

	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	next := n.height + blocks
	if next < n.height {
		return n.height, fmt.Errorf("node: height overflow")
	}
	if err := n.state.SetHeight(next); err != nil {
		return n.height, err
	}
	if err := n.state.Commit(); err != nil {
		return n.height, fmt.Errorf("node: commit height: %w", err)
	}
	n.height = next
	observability.Node().SetHeight(next)
	span.SetAttributes(attribute.Int64("height", int64(next)))
	return next, nil
}

// execute runs fn as one sequenced operation. A failing fn leaves state and
// emitted events untouched; the height it consumed is still persisted.
func (n *Node) execute(ctx context.Context, op string, fn func(bc types.BlockContext) error) (Receipt, error) {
	ctx, span := n.tracer.Start(ctx, "node."+op)
	defer span.End()

	n.stateMu.Lock()
	start := time.Now()
	bc := types.NewBlockContext(n.height)
	if n.autoMine {
		bc.Height++
	}
	snapshot := n.state.Snapshot()
	opErr := fn(bc)

	var records []types.EventRecord
	if opErr != nil {
		n.state.RevertToSnapshot(snapshot)
		n.buffer.Reset()
	} else {
		records = n.sequenceEvents(bc.Height)
	}
	if bc.Height != n.height {
		if err := n.state.SetHeight(bc.Height); err != nil && opErr == nil {
			opErr = err
		}
	}
	if err := n.state.Commit(); err != nil {
		n.state.RevertToSnapshot(snapshot)
		n.stateMu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit")
		return Receipt{}, fmt.Errorf("node: commit %s: %w", op, err)
	}
	n.height = bc.Height
	n.stateMu.Unlock()

	kind := ""
	if opErr != nil {
		kind = coreerrors.Kind(opErr)
		if kind == "" {
			kind = "Invalid"
		}
	}
	observability.Node().ObserveOperation(op, kind, time.Since(start))
	observability.Node().SetHeight(bc.Height)
	span.SetAttributes(attribute.String("op", op), attribute.Int64("height", int64(bc.Height)))

	if opErr != nil {
		span.RecordError(opErr)
		span.SetStatus(codes.Error, kind)
		n.logger.Warn("operation reverted",
			slog.String("op", op),
			slog.Uint64("height", bc.Height),
			slog.String("kind", kind),
			slog.Any("error", opErr))
		return Receipt{Height: bc.Height}, opErr
	}

	for _, rec := range records {
		observability.ObserveEvent(rec.Event)
	}
	n.publish(ctx, records)
	n.logger.Debug("operation committed",
		slog.String("op", op),
		slog.Uint64("height", bc.Height),
		slog.Int("events", len(records)))
	return Receipt{Height: bc.Height, Events: records}, nil
}

// sequenceEvents drains the buffer and assigns chain wide sequence numbers.
// It must run before Commit so the counter lands in the same batch.
func (n *Node) sequenceEvents(height uint64) []types.EventRecord {
	drained := n.buffer.Drain()
	if len(drained) == 0 {
		return nil
	}
	records := make([]types.EventRecord, 0, len(drained))
	next := n.sequence
	for _, evt := range drained {
		rendered := events.Render(evt)
		if rendered == nil {
			continue
		}
		next++
		records = append(records, types.EventRecord{Height: height, Sequence: next, Event: rendered})
	}
	if err := n.state.KVPut(eventSequenceKey, next); err != nil {
		n.logger.Error("persist event sequence", slog.Any("error", err))
		return records
	}
	n.sequence = next
	return records
}

func (n *Node) publish(ctx context.Context, records []types.EventRecord) {
	if len(records) == 0 {
		return
	}
	n.sinkMu.RLock()
	sinks := append([]EventSink(nil), n.sinks...)
	n.sinkMu.RUnlock()
	for _, sink := range sinks {
		if err := sink.Publish(ctx, records); err != nil {
			n.logger.Error("publish events", slog.Any("error", err))
		}
	}
}

// read runs fn under the state lock without sequencing.
func (n *Node) read(fn func() error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return fn()
}

// Close releases the storage backend.
func (n *Node) Close() error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.db.Close()
	return nil
}
