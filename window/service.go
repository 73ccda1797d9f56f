package window

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/turbinevalidator/ingestwindow/bankctx"
)

// StallWarningThreshold is the cumulative idle duration after which a
// sequence of Timeout iterations produces a liveness warning.
const StallWarningThreshold = 30 * time.Second

// State is one of the ingest worker's lifecycle states.
type State int32

const (
	StateRunning State = iota
	StateDraining
	StateExited
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// BankForksView supplies the ingest worker with the current working bank
// snapshot, re-read under a short-lived read lock once per iteration and
// never held across the parallel decode/filter stage.
type BankForksView interface {
	WorkingBank() bankctx.Bank
}

// staticBankForks is the trivial BankForksView used when the deployment has
// no fork-aware bank tracking (e.g. a fixed-identity light client).
type staticBankForks struct{ bank bankctx.Bank }

func (s staticBankForks) WorkingBank() bankctx.Bank { return s.bank }

// StaticBankForks wraps a fixed Bank as a BankForksView.
func StaticBankForks(bank bankctx.Bank) BankForksView { return staticBankForks{bank: bank} }

// RepairService is the companion collaborator the window service co-manages:
// its internal design is out of scope here, only its start/stop contract.
type RepairService interface {
	Start()
	Join() error
}

// Service owns the ingest worker's lifecycle: construction, a single
// dedicated goroutine running RecvWindow in a loop, and coordinated
// shutdown with a companion RepairService.
type Service struct {
	Ingestor *Ingestor
	BankView BankForksView
	Repair   RepairService

	// ExitFlag is the shared cooperative-shutdown signal. NewService
	// allocates a private flag when given nil; Start does not, so a Service
	// built without NewService must set it.
	ExitFlag *atomic.Bool

	// StallWarnThresholdOverride replaces StallWarningThreshold when
	// non-zero.
	StallWarnThresholdOverride time.Duration

	state atomic.Int32

	wg      sync.WaitGroup
	workErr error
}

// NewService constructs a Service ready to Start. If exitFlag is nil, a
// private one is created.
func NewService(ingestor *Ingestor, bankView BankForksView, repair RepairService, exitFlag *atomic.Bool) *Service {
	if exitFlag == nil {
		exitFlag = &atomic.Bool{}
	}
	return &Service{Ingestor: ingestor, BankView: bankView, Repair: repair, ExitFlag: exitFlag}
}

func (s *Service) stallWarnThreshold() time.Duration {
	if s.StallWarnThresholdOverride > 0 {
		return s.StallWarnThresholdOverride
	}
	return StallWarningThreshold
}

// Start spawns exactly one ingest worker goroutine and starts the repair
// service alongside it. Go goroutines grow their stack from a small initial
// allocation rather than requiring an upfront enlarged stack; the process
// entrypoint instead sets debug.SetMaxStack to 8 MiB, the worker-stack
// tunable, as the per-goroutine stack ceiling.
func (s *Service) Start(ctx context.Context) {
	s.state.Store(int32(StateRunning))
	s.wg.Add(1)
	go s.runIngest(ctx)
	if s.Repair != nil {
		s.Repair.Start()
	}
}

// State reports the ingest worker's current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// runIngest is the ingest worker goroutine body. It installs a teardown
// guard (via deferred functions, executed LIFO) that publishes the exit
// flag on every exit path, including a panic, before looping on RecvWindow.
func (s *Service) runIngest(ctx context.Context) {
	defer s.wg.Done()

	// Registered first so it runs LAST on unwind: after recover() below has
	// already run, guaranteeing ExitFlag is true regardless of how this
	// goroutine leaves, panic included.
	defer func() {
		s.ExitFlag.Store(true)
		s.state.Store(int32(StateExited))
	}()
	defer func() {
		if r := recover(); r != nil {
			s.workErr = fmt.Errorf("window: ingest worker panic: %v", r)
		}
	}()

	lastSuccess := time.Now()

	for {
		if s.ExitFlag.Load() {
			return
		}

		bank := s.BankView.WorkingBank()
		err := s.Ingestor.RecvWindow(ctx, bank)

		switch {
		case err == nil:
			lastSuccess = time.Now()

		case errors.Is(err, ErrTimeout):
			if time.Since(lastSuccess) > s.stallWarnThreshold() {
				log.Warn("ingest worker stalled", "idle", time.Since(lastSuccess))
				serviceStallWarnings.Inc(1)
				lastSuccess = time.Now()
			}

		case errors.Is(err, ErrDisconnected):
			s.workErr = err
			return

		default:
			// BlockStoreError and any other non-recoverable failure: log,
			// count (already counted in RecvWindow), and keep looping. The
			// exit flag remains the only hard stop.
			log.Error("ingest iteration failed", "err", err)
		}
	}
}

// Join waits for the ingest worker and then the repair service, returning a
// compound error only if either failed.
func (s *Service) Join() error {
	s.wg.Wait()
	var repairErr error
	if s.Repair != nil {
		repairErr = s.Repair.Join()
	}
	switch {
	case s.workErr != nil && repairErr != nil:
		return fmt.Errorf("window: ingest error: %v; repair error: %w", s.workErr, repairErr)
	case s.workErr != nil:
		return s.workErr
	case repairErr != nil:
		return repairErr
	default:
		return nil
	}
}

// Stop sets the shared exit flag, requesting cooperative shutdown. It does
// not block; call Join to wait for termination.
func (s *Service) Stop() {
	s.ExitFlag.Store(true)
}
