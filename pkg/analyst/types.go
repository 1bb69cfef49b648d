// Package analyst implements the LLM Analyst Client of spec §4.6: it
// speaks the analyst's request/response protocol and translates to/from
// domain types. Grounded on tarsy's pkg/llm/client.go for the client
// shape (bounded timeout, stateless, malformed-response rejection) and
// theRebelliousNerd-codenerd's internal/embedding/genai.go for the actual
// google.golang.org/genai wiring — tarsy's own LLM client talks gRPC to a
// generated `tarsy/proto` package that is not in the retrieval pack (see
// DESIGN.md), so the transport is swapped but the client's contract shape
// is kept.
package analyst

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// Request is the bounded analysis context sent to the analyst for one
// campaign: the current sample, a trailing window, the guardrails in
// force, and proposals already queued for approval so the analyst doesn't
// re-propose them.
type Request struct {
	CampaignRef      domain.CampaignRef
	Current          domain.MetricSample
	TrailingWindow   []domain.MetricSample
	Guardrails       domain.Guardrails
	PendingProposals []domain.Proposal
}

// Response is the analyst's structured reply: zero or more proposals plus
// a coarse health signal.
type Response struct {
	Proposals     []domain.Proposal
	OverallHealth domain.OverallHealth
}

// Fingerprint is a deterministic hash of req's inputs (spec §4.3 step 3:
// "keyed by a deterministic fingerprint ... so that a retried tick with
// identical inputs does not multiply-bill the analyst"). Field order is
// fixed and pending proposals are sorted by ID first, so two logically
// identical requests always fingerprint the same regardless of slice
// ordering.
func (r Request) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "campaign=%s:%s\n", r.CampaignRef.PlatformId, r.CampaignRef.ExternalId)
	fmt.Fprintf(h, "current=%d:%d:%s:%d:%s\n", r.Current.Impressions, r.Current.Clicks, r.Current.Spend, r.Current.Conversions, r.Current.Revenue)

	window := append([]domain.MetricSample(nil), r.TrailingWindow...)
	sort.Slice(window, func(i, j int) bool { return window[i].SampleTime.Before(window[j].SampleTime) })
	for _, s := range window {
		fmt.Fprintf(h, "sample=%d:%d:%d:%s:%d:%s\n", s.SampleTime.Unix(), s.Impressions, s.Clicks, s.Spend, s.Conversions, s.Revenue)
	}

	fmt.Fprintf(h, "guardrails=%.6f:%d:%.6f:%.6f:%.6f:%.6f:%s\n",
		r.Guardrails.ConfidenceThreshold, r.Guardrails.MaxDailyAdjustments,
		r.Guardrails.MaxBudgetReallocationFractionPerDay, r.Guardrails.MaxSingleBudgetIncreaseFraction,
		r.Guardrails.MinCampaignRuntimeHoursBeforePause, r.Guardrails.MajorChangeFraction,
		r.Guardrails.AutomationLevel)

	pending := append([]domain.Proposal(nil), r.PendingProposals...)
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	for _, p := range pending {
		fmt.Fprintf(h, "pending=%s:%s:%s:%s\n", p.ID, p.Kind, p.FromState, p.ToState)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// DefaultTimeout is the hard response timeout enforced by the client when
// the caller's context carries no earlier deadline.
const DefaultTimeout = 20 * time.Second
