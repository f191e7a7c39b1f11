package enforcement

import (
	"context"
	"fmt"

	"github.com/titooo7/teamarr-sub000/internal/lifecycle"
	"github.com/titooo7/teamarr-sub000/internal/model"
)

// GatewayChannelState is the aggregator's view of one channel, as far as
// reconciliation needs it — a narrower twin of generation.ChannelState so
// this package doesn't have to import generation (which already imports
// this package for CrossGroup/Keyword/Ordering enforcement).
type GatewayChannelState struct {
	ID     string
	Name   string
	Number int
	TVGID  string
}

// ReconcilerGateway is the aggregator seam Reconciler needs: list its
// channels, delete one it no longer should have, or push a drifted
// channel's name/number back in line with the managed_channels record.
type ReconcilerGateway interface {
	ListChannels(ctx context.Context) ([]GatewayChannelState, error)
	UpdateChannel(ctx context.Context, channelID, name string, number int) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// IssueType names one of the four drift categories the reconciler checks
// for between managed_channels and the aggregator's own channel list.
type IssueType string

const (
	IssueOrphanLocal   IssueType = "orphan_local"   // DB record exists, aggregator channel doesn't
	IssueOrphanGateway IssueType = "orphan_gateway" // aggregator channel exists, no DB record
	IssueDuplicate     IssueType = "duplicate"      // two DB records claim the same event
	IssueDrift         IssueType = "drift"          // name/number disagree between the two sides
)

// Mode controls whether Reconcile only reports issues or also resolves them.
type Mode string

const (
	ModeDetectOnly Mode = "detect_only"
	ModeAutoFix    Mode = "auto_fix"
	ModeManual     Mode = "manual" // reported like detect_only; left for a human to action
)

// Issue is one detected inconsistency.
type Issue struct {
	Type             IssueType
	ChannelID        string // managed_channels-side ID, if known
	GatewayChannelID string // aggregator-side ID, if known
	TVGID            string
	Detail           string
	Fixed            bool
}

// ReconcileResult is the outcome of one Reconcile pass.
type ReconcileResult struct {
	Issues []Issue
	Errors []string
}

// ReconcilerStore is the persistence seam Reconciler needs.
type ReconcilerStore interface {
	AllActiveChannels(ctx context.Context) ([]model.ManagedChannel, error)
	MarkChannelDeleted(ctx context.Context, channelID, reason string) error
	LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error
}

// Reconciler compares managed_channels against the aggregator's actual
// channel list and, in ModeAutoFix, resolves what it can without human
// review: dropping orphaned DB records, deleting orphaned aggregator
// channels this system owns, and pushing local name/number back onto a
// drifted aggregator channel. Duplicates are reported only — cross_group.go
// already owns the decision of which duplicate channel survives.
type Reconciler struct {
	Store   ReconcilerStore
	Gateway ReconcilerGateway
}

// Reconcile runs one pass. With no Gateway configured there is nothing to
// compare against, so it returns an empty result rather than an error.
func (r *Reconciler) Reconcile(ctx context.Context, mode Mode) (ReconcileResult, error) {
	var result ReconcileResult
	if r.Gateway == nil {
		return result, nil
	}

	local, err := r.Store.AllActiveChannels(ctx)
	if err != nil {
		return result, fmt.Errorf("reconciliation: list local channels: %w", err)
	}
	remote, err := r.Gateway.ListChannels(ctx)
	if err != nil {
		return result, fmt.Errorf("reconciliation: list aggregator channels: %w", err)
	}

	remoteByTVGID := make(map[string]GatewayChannelState, len(remote))
	for _, rc := range remote {
		if rc.TVGID != "" {
			remoteByTVGID[rc.TVGID] = rc
		}
	}
	localByTVGID := make(map[string]bool, len(local))
	for _, lc := range local {
		if lc.TVGID != "" {
			localByTVGID[lc.TVGID] = true
		}
	}

	autoFix := mode == ModeAutoFix
	seenEvents := map[string]string{} // groupID|eventID|provider -> first channel ID seen

	for _, lc := range local {
		if !lifecycle.HasEventPrefix(lc.TVGID) {
			continue
		}

		rc, ok := remoteByTVGID[lc.TVGID]
		if !ok {
			issue := Issue{Type: IssueOrphanLocal, ChannelID: lc.ID, TVGID: lc.TVGID,
				Detail: "managed channel has no matching aggregator channel"}
			if autoFix {
				if err := r.fixOrphanLocal(ctx, lc); err != nil {
					result.Errors = append(result.Errors, err.Error())
				} else {
					issue.Fixed = true
				}
			}
			result.Issues = append(result.Issues, issue)
			continue
		}

		if lc.EventID != "" {
			dupKey := lc.GroupID + "|" + lc.EventID + "|" + lc.EventProvider
			if firstID, exists := seenEvents[dupKey]; exists {
				result.Issues = append(result.Issues, Issue{
					Type: IssueDuplicate, ChannelID: lc.ID, TVGID: lc.TVGID,
					Detail: fmt.Sprintf("duplicate of channel %s for the same event", firstID),
				})
			} else {
				seenEvents[dupKey] = lc.ID
			}
		}

		if rc.Name != lc.Name || rc.Number != lc.ChannelNumber {
			issue := Issue{Type: IssueDrift, ChannelID: lc.ID, GatewayChannelID: rc.ID, TVGID: lc.TVGID,
				Detail: fmt.Sprintf("local=%q/%d aggregator=%q/%d", lc.Name, lc.ChannelNumber, rc.Name, rc.Number)}
			if autoFix {
				if err := r.Gateway.UpdateChannel(ctx, rc.ID, lc.Name, lc.ChannelNumber); err != nil {
					result.Errors = append(result.Errors, err.Error())
				} else {
					issue.Fixed = true
				}
			}
			result.Issues = append(result.Issues, issue)
		}
	}

	for _, rc := range remote {
		if !lifecycle.HasEventPrefix(rc.TVGID) || localByTVGID[rc.TVGID] {
			continue
		}
		issue := Issue{Type: IssueOrphanGateway, GatewayChannelID: rc.ID, TVGID: rc.TVGID,
			Detail: "aggregator channel has no managed_channels record"}
		if autoFix {
			if err := r.Gateway.DeleteChannel(ctx, rc.ID); err != nil {
				result.Errors = append(result.Errors, err.Error())
			} else {
				issue.Fixed = true
			}
		}
		result.Issues = append(result.Issues, issue)
	}

	return result, nil
}

func (r *Reconciler) fixOrphanLocal(ctx context.Context, ch model.ManagedChannel) error {
	if err := r.Store.MarkChannelDeleted(ctx, ch.ID, "reconciliation_orphan"); err != nil {
		return fmt.Errorf("mark channel %s deleted: %w", ch.ID, err)
	}
	_ = r.Store.LogChannelHistory(ctx, ch.ID, "deleted", "reconciliation", "orphaned record removed, no matching aggregator channel")
	return nil
}
