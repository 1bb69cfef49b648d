package analyst

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adspilot/core/pkg/domain"
)

// buildPrompt serialises req into the analyst's request protocol. Every
// free-text field — proposal reasoning and notes carried over from
// pending proposals — passes through the redactor first, since req may
// contain whatever the analyst itself wrote on a prior tick (spec §4.6:
// "responsible for redacting any value not required by the analyst's
// job").
func (c *GenAIClient) buildPrompt(req Request) string {
	type sampleJSON struct {
		SampleTime  string `json:"sample_time"`
		Impressions int64  `json:"impressions"`
		Clicks      int64  `json:"clicks"`
		Spend       string `json:"spend"`
		Conversions int64  `json:"conversions"`
		Revenue     string `json:"revenue"`
	}
	toSampleJSON := func(s domain.MetricSample) sampleJSON {
		return sampleJSON{
			SampleTime:  s.SampleTime.UTC().Format("2006-01-02T15:04:05Z"),
			Impressions: s.Impressions,
			Clicks:      s.Clicks,
			Spend:       s.Spend.String(),
			Conversions: s.Conversions,
			Revenue:     s.Revenue.String(),
		}
	}

	type pendingJSON struct {
		ID        string `json:"id"`
		Kind      string `json:"kind"`
		ToState   string `json:"to_state"`
		Reasoning string `json:"reasoning"`
	}

	window := make([]sampleJSON, 0, len(req.TrailingWindow))
	for _, s := range req.TrailingWindow {
		window = append(window, toSampleJSON(s))
	}

	pending := make([]pendingJSON, 0, len(req.PendingProposals))
	for _, p := range req.PendingProposals {
		pending = append(pending, pendingJSON{
			ID:        p.ID,
			Kind:      string(p.Kind),
			ToState:   p.ToState,
			Reasoning: c.redactor.Text(p.Reasoning),
		})
	}

	payload := struct {
		CampaignExternalID string        `json:"campaign_external_id"`
		Platform           string        `json:"platform"`
		Current            sampleJSON    `json:"current"`
		TrailingWindow     []sampleJSON  `json:"trailing_window"`
		Guardrails         domain.Guardrails `json:"guardrails"`
		PendingProposals   []pendingJSON `json:"pending_proposals"`
	}{
		CampaignExternalID: req.CampaignRef.ExternalId,
		Platform:           string(req.CampaignRef.PlatformId),
		Current:            toSampleJSON(req.Current),
		TrailingWindow:     window,
		Guardrails:         req.Guardrails,
		PendingProposals:   pending,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		// Marshaling our own well-typed struct cannot fail in practice; if it
		// somehow does, degrade to an empty context rather than panic.
		body = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("You are an ad-spend optimization analyst. Given the campaign performance ")
	b.WriteString("context below, propose zero or more changes and an overall health signal. ")
	b.WriteString("Respond only with JSON matching the provided schema.\n\n")
	fmt.Fprintf(&b, "Context:\n%s\n", body)
	return b.String()
}
