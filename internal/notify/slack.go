// Package notify posts reconciliation outcomes to Slack.
package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/slack-go/slack"

	"opsboard/api/internal/reconcile"
)

// Notifier posts to a single channel. A nil Notifier is a no-op, so callers
// can wire it unconditionally.
type Notifier struct {
	api       *slack.Client
	channelID string
}

// New creates a Notifier, or nil when no token is configured.
func New(botToken, channelID string) *Notifier {
	if strings.TrimSpace(botToken) == "" || strings.TrimSpace(channelID) == "" {
		return nil
	}
	return &Notifier{api: slack.New(botToken), channelID: channelID}
}

// PostReconciliationSummary sends a compact discrepancy digest. Only called
// from scheduled runs; interactive API calls stay silent.
func (n *Notifier) PostReconciliationSummary(result reconcile.Result) error {
	if n == nil {
		return nil
	}
	_, _, err := n.api.PostMessage(n.channelID, slack.MsgOptionText(FormatSummary(result), false))
	if err != nil {
		return fmt.Errorf("post reconciliation summary: %w", err)
	}
	return nil
}

// FormatSummary renders the digest text. Split out for testing.
func FormatSummary(result reconcile.Result) string {
	var b strings.Builder

	names := make([]string, 0, len(result.PerSource))
	for name := range result.PerSource {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("Reconciliation run complete.\n")
	for _, name := range names {
		s := result.PerSource[name]
		fmt.Fprintf(&b, "• %s: %.1fh reported, %d matched / %d unmatched tasks\n",
			name, s.TotalHours, s.MatchedTaskCount, s.UnmatchedTaskCount)
	}

	if len(result.Discrepancies) == 0 {
		b.WriteString("No discrepancies.")
		return b.String()
	}

	fmt.Fprintf(&b, "%d task(s) with discrepancies:\n", len(result.Discrepancies))
	const maxListed = 10
	for i, d := range result.Discrepancies {
		if i == maxListed {
			fmt.Fprintf(&b, "…and %d more", len(result.Discrepancies)-maxListed)
			break
		}
		if len(d.MissingSources) > 0 {
			fmt.Fprintf(&b, "• %s (%s): expected %.1fh, missing from %s\n",
				d.TaskID, d.TaskName, d.ExpectedHours, strings.Join(d.MissingSources, ", "))
			continue
		}
		fmt.Fprintf(&b, "• %s (%s): expected %.1fh, delta %+.1fh\n",
			d.TaskID, d.TaskName, d.ExpectedHours, d.Delta)
	}
	return strings.TrimRight(b.String(), "\n")
}
