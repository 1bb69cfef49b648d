// Package engine implements the Decision Engine of spec §4.3 and §5: the
// per-tick orchestration that collects performance, asks the LLM analyst
// for proposals, gates them through the guardrail evaluator, executes the
// auto-executable ones, and ledgers exactly one ActionRecord per proposal.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adspilot/core/pkg/adapter"
	"github.com/adspilot/core/pkg/analyst"
	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/guardrail"
	"github.com/adspilot/core/pkg/ledger"
	"github.com/google/uuid"
)

// Config bundles the tunables of spec §5: cadence, tick deadline fraction,
// trailing window, and the per-platform fan-out concurrency cap.
type Config struct {
	Cadence              time.Duration
	TickDeadlineFraction float64 // default 0.8
	TrailingWindow        time.Duration
	ConcurrencyCap       int // default 4
	LeaseTTL             time.Duration
	HolderID             string
}

// DefaultConfig returns spec §5's defaults.
func DefaultConfig(holderID string) Config {
	return Config{
		Cadence:              15 * time.Minute,
		TickDeadlineFraction: 0.8,
		TrailingWindow:        7 * 24 * time.Hour,
		ConcurrencyCap:       4,
		LeaseTTL:             2 * time.Minute,
		HolderID:             holderID,
	}
}

// Engine is the process-wide orchestrator. Registry, ledger client,
// analyst client, and guardrail pieces are passed in explicitly at
// construction, never reached for as ambient globals (SPEC_FULL design
// notes).
type Engine struct {
	cfg Config

	registry  *adapter.Registry
	store     *ledger.Client
	analyst   analyst.Client
	evaluator *guardrail.Evaluator
	approvals *guardrail.ApprovalQueue
	overrides *guardrail.OverrideStore
	warnings  *SystemWarnings
	lease     *Lease

	baseGuardrails   domain.Guardrails
	platformCeilings map[domain.PlatformId]*currency.Amount

	mu           sync.Mutex
	state        TickState
	counters     domain.DailyCounters
	lastTickTime time.Time

	now func() time.Time
}

// New constructs an Engine. counters should come from
// ledger.ReconstructDailyCounters on cold start (spec §4.5 recovery
// contract).
func New(
	cfg Config,
	registry *adapter.Registry,
	store *ledger.Client,
	analystClient analyst.Client,
	evaluator *guardrail.Evaluator,
	approvals *guardrail.ApprovalQueue,
	overrides *guardrail.OverrideStore,
	baseGuardrails domain.Guardrails,
	platformCeilings map[domain.PlatformId]*currency.Amount,
	counters domain.DailyCounters,
) *Engine {
	return &Engine{
		cfg:              cfg,
		registry:         registry,
		store:            store,
		analyst:          analystClient,
		evaluator:        evaluator,
		approvals:        approvals,
		overrides:        overrides,
		warnings:         NewSystemWarnings(),
		lease:            NewLease(store.Pool(), store, cfg.LeaseTTL),
		baseGuardrails:   baseGuardrails,
		platformCeilings: platformCeilings,
		state:            StateIdle,
		counters:         counters,
		now:              time.Now,
	}
}

// State returns the engine's current tick-state-machine position.
func (e *Engine) State() TickState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Warnings exposes the live SystemWarnings registry for the health
// endpoint.
func (e *Engine) Warnings() *SystemWarnings { return e.warnings }

func (e *Engine) setState(s TickState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Tick runs one full pass of the spec §4.3 algorithm: Collect → Normalise
// → Analyse → Gate → Execute → Audit. It is safe to call on a cadence
// (via Scheduler) or directly (tests, manual trigger).
func (e *Engine) Tick(ctx context.Context) error {
	ok, err := e.lease.Acquire(ctx, e.cfg.HolderID)
	if err != nil {
		return fmt.Errorf("engine: acquire lease: %w", err)
	}
	if !ok {
		// Another node (or an overlapping tick) holds the lease. Spec §5:
		// a tick that can't start within its slot is skipped, not queued.
		return e.recordTickSkipped(ctx, "lease held by another node")
	}
	defer func() {
		if err := e.lease.Release(ctx, e.cfg.HolderID); err != nil {
			slog.Error("engine: release lease", "error", err)
		}
	}()

	deadline := e.now().Add(time.Duration(float64(e.cfg.Cadence) * e.cfg.TickDeadlineFraction))
	tickCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if err := e.runTick(tickCtx); err != nil {
		e.setState(StateFailed)
		if recErr := e.recordTickFailed(ctx, err); recErr != nil {
			slog.Error("engine: record tick failure", "error", recErr)
		}
		e.setState(StateIdle)
		return err
	}
	e.setState(StateIdle)
	return nil
}

func (e *Engine) runTick(ctx context.Context) error {
	now := e.now()

	e.expireApprovals(ctx, now)

	e.setState(StateCollecting)
	since := e.lastTickSince(now)
	samples, excluded := e.collect(ctx, since, now)
	for _, ex := range excluded {
		e.recordPlatformExcluded(ctx, ex.platform, ex.reason)
	}

	e.setState(StateAnalyzing)
	proposals := e.analyse(ctx, samples, now)

	e.setState(StateGating)
	executable, rejected := e.gate(ctx, proposals, now)
	for _, r := range rejected {
		e.recordDecisionOnly(ctx, r)
	}
	e.checkApprovalBacklog(now)

	// Drain any proposal a human approved since the last tick and re-check
	// it before executing — the mandatory recheck of spec §4.4.
	approved := e.approvals.DrainApproved()
	for _, entry := range approved {
		e.forgetApprovalEntry(ctx, entry.Proposal.ID)
		state := e.ruleState(ctx, entry.Proposal, now)
		g := e.overrides.Effective(e.baseGuardrails, scopeFor(entry.Proposal.CampaignRef))
		decision := e.evaluator.Recheck(entry.Proposal, state, g)
		if decision.Outcome == domain.DecisionAutoExecute {
			executable = append(executable, gated{proposal: entry.Proposal, decision: decision})
		} else {
			e.recordDecisionOnly(ctx, gated{proposal: entry.Proposal, decision: decision})
		}
	}

	e.setState(StateExecuting)
	e.execute(ctx, executable, now)

	e.setState(StateAuditing)
	e.mu.Lock()
	e.lastTickTime = now
	e.mu.Unlock()
	return nil
}

func (e *Engine) lastTickSince(now time.Time) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastTickTime.IsZero() {
		return now.Add(-e.cfg.Cadence)
	}
	return e.lastTickTime
}

// expireApprovals sweeps the TTL queue and ledgers an EXPIRED ActionRecord
// for every entry that aged out since the last sweep (spec §8 scenario 6).
func (e *Engine) expireApprovals(ctx context.Context, now time.Time) {
	for _, entry := range e.approvals.SweepExpired() {
		rec := domain.ActionRecord{
			ID:          uuid.NewString(),
			Kind:        domain.RecordProposalOutcome,
			ProposalRef: entry.Proposal.ID,
			Decision: domain.Decision{
				ProposalID: entry.Proposal.ID,
				Outcome:    domain.DecisionApprovalRequired,
				Reason:     domain.ReasonWithinLimits,
				DecidedAt:  now,
			},
			BeforeState: entry.Proposal.FromState,
			AfterState:  entry.Proposal.ToState,
			Outcome:     domain.ActionExpired,
			RecordedAt:  now,
		}
		if err := e.store.RecordAction(ctx, rec, entry.Proposal.CampaignRef); err != nil && !errors.Is(err, ledger.ErrDuplicateProposal) {
			slog.Error("engine: record expired approval", "proposal", entry.Proposal.ID, "error", err)
		}
		e.forgetApprovalEntry(ctx, entry.Proposal.ID)
	}
}
