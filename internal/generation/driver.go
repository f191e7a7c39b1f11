package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/titooo7/teamarr-sub000/internal/enforcement"
	"github.com/titooo7/teamarr-sub000/internal/groups"
	"github.com/titooo7/teamarr-sub000/internal/match"
	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/numbering"
	"github.com/titooo7/teamarr-sub000/internal/platform/metrics"
	"github.com/titooo7/teamarr-sub000/internal/store"
	"github.com/titooo7/teamarr-sub000/internal/xmltv"
)

// Store is the persistence seam the driver itself needs, beyond what
// Processor/lifecycle.Service/the enforcement passes already ask for on
// their own narrow interfaces. Every method name matches an existing
// *store.Store method exactly, so no adapter type is needed to wire it —
// only AllActiveChannels and FinishRun are genuinely new.
type Store interface {
	GetEventGroups(ctx context.Context) ([]model.EventEPGGroup, error)
	GetManagedChannelsForGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error)
	AllActiveChannels(ctx context.Context) ([]model.ManagedChannel, error)
	SaveEventXMLTV(ctx context.Context, groupID string, document []byte) error
	MarkChannelDeleted(ctx context.Context, channelID, reason string) error
	LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error
	IncrementGeneration(ctx context.Context) (int64, error)
	PurgeStale(ctx context.Context, p store.PurgeStaleParams) (int64, error)
	StartRun(ctx context.Context, runID string) error
	FinishRun(ctx context.Context, runID, status, errMsg string, groupsProcessed int, durationSeconds float64) error
	CleanupOldHistory(ctx context.Context, retentionDays int) (int64, error)
}

// GroupOutcome is one group's result folded into a GenerationResult.
type GroupOutcome struct {
	GroupID   string
	GroupName string
	Matched   int
	Failed    int
	Filtered  int
	Error     string
}

// GenerationResult is the outcome of one full Run call.
type GenerationResult struct {
	RunID           string
	StartedAt       time.Time
	CompletedAt     time.Time
	Generation      int64
	Groups          []GroupOutcome
	GroupsProcessed int
	GroupsFailed    int
	Matched         int
	Failed          int
	Filtered        int
	XMLTV           []byte
	CachePurged     int64
	Keyword         enforcement.KeywordResult
	CrossGroup      enforcement.Result
	Ordering        enforcement.OrderingResult
	OrphansDeleted  int
	DisabledDeleted int
	Reconcile       enforcement.ReconcileResult
	HistoryPurged   int64
	Errors          []string
}

// ProgressFunc reports progress to a caller — a scheduler log line or an
// HTTP "regenerate now" status poll. The six fields mirror the reference's
// own progress callback shape: a coarse phase name, percent complete, a
// human message, and the current/total/item triple a progress bar needs.
type ProgressFunc func(phase string, percent int, message string, current, total int, item string)

// Driver is the unified generation entry point: it is what a scheduled
// fire and an on-demand "regenerate now" request both call. It owns group
// ordering, per-group error isolation, the post-pass enforcement sequence,
// and handing the result to the external channel aggregator.
type Driver struct {
	Store                Store
	Processor            *groups.Processor
	Events               match.EventFetcher // league/day event prefetch, shared across every group in the run
	CrossGroup           *enforcement.Enforcer
	Keyword              *enforcement.KeywordEnforcer
	Ordering             *enforcement.KeywordOrderingEnforcer
	Gateway              ChannelGateway   // nil disables orphan cleanup, which has nothing to reconcile against
	ReconcileMode        enforcement.Mode // zero value behaves as ModeDetectOnly
	Generator            string           // XMLTV generator-info-name for the merged document
	Now                  func() time.Time
	DefaultDaysAhead     int
	HistoryRetentionDays int // channel_history rows older than this are purged each run; 0 disables
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Run processes every enabled group in dependency order (single-league
// parents, then their children, then multi-league groups), then runs the
// six post-pass enforcement sweeps once across the whole run, then merges
// every processed group's XMLTV into one document. A single group's
// failure is recorded and the run continues with the next group; only an
// error from Store itself (it couldn't even load group config, or
// couldn't record the run) is returned to the caller as a hard failure.
func (d *Driver) Run(ctx context.Context, targetDate time.Time, progress ProgressFunc) (GenerationResult, error) {
	result := GenerationResult{RunID: uuid.NewString(), StartedAt: d.now()}

	metrics.GenerationInProgress.Set(1)
	defer metrics.GenerationInProgress.Set(0)

	if err := d.Store.StartRun(ctx, result.RunID); err != nil {
		return result, fmt.Errorf("generation: start run: %w", err)
	}

	generation, err := d.Store.IncrementGeneration(ctx)
	if err != nil {
		_ = d.Store.FinishRun(ctx, result.RunID, "failed", err.Error(), 0, 0)
		return result, fmt.Errorf("generation: increment generation counter: %w", err)
	}
	result.Generation = generation

	allGroups, err := d.Store.GetEventGroups(ctx)
	if err != nil {
		_ = d.Store.FinishRun(ctx, result.RunID, "failed", err.Error(), 0, 0)
		return result, fmt.Errorf("generation: load groups: %w", err)
	}

	var enabled []model.EventEPGGroup
	var multiLeagueIDs []string
	for _, g := range allGroups {
		if !g.Enabled {
			continue
		}
		enabled = append(enabled, g)
		if g.MultiLeague {
			multiLeagueIDs = append(multiLeagueIDs, g.ID)
		}
	}

	prefetched, err := d.prefetch(ctx, enabled, targetDate)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("prefetch: %v", err))
		prefetched = map[string][]model.Event{}
	}

	var xmltvDocs [][]byte
	total := len(enabled)
	if total == 0 {
		if progress != nil {
			progress("groups", 0, "no event groups configured", 0, 1, "")
		}
	}

	for i, group := range enabled {
		if progress != nil {
			progress("groups", percent(i, total), fmt.Sprintf("processing %s", group.Name), i, total, group.Name)
		}

		outcome := GroupOutcome{GroupID: group.ID, GroupName: group.Name}

		if group.IsChild() {
			gr, err := d.Processor.ProcessChild(ctx, group, group.ParentGroupID, result.RunID, generation, targetDate, prefetched)
			if err != nil {
				outcome.Error = err.Error()
				result.GroupsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("group %s: %v", group.Name, err))
			} else {
				outcome.Matched, outcome.Failed, outcome.Filtered = gr.Matched, gr.Failed, gr.Filtered
				result.Matched += gr.Matched
				result.Failed += gr.Failed
				result.Filtered += gr.Filtered
			}
		} else {
			groupInfo := numbering.GroupInfo{
				ID:                 group.ID,
				SortOrder:          group.SortOrder,
				AssignmentMode:     numbering.AssignmentMode(group.AssignmentMode),
				ChannelStartNumber: group.ChannelStartNum,
				TotalStreamCount:   group.TotalStreamCount,
				IsChild:            false,
			}
			gr, err := d.Processor.Process(ctx, group, groupInfo, result.RunID, generation, targetDate, prefetched)
			if err != nil {
				outcome.Error = err.Error()
				result.GroupsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("group %s: %v", group.Name, err))
			} else {
				outcome.Matched, outcome.Failed, outcome.Filtered = gr.Matched, gr.Failed, gr.Filtered
				result.Matched += gr.Matched
				result.Failed += gr.Failed
				result.Filtered += gr.Filtered
				if len(gr.XMLTV) > 0 {
					xmltvDocs = append(xmltvDocs, gr.XMLTV)
					if err := d.Store.SaveEventXMLTV(ctx, group.ID, gr.XMLTV); err != nil {
						result.Errors = append(result.Errors, fmt.Sprintf("save xmltv for group %s: %v", group.Name, err))
					}
				}
			}
		}

		league := groupLeagueLabel(group)
		metrics.StreamsMatched.WithLabelValues(league).Add(float64(outcome.Matched))
		if outcome.Failed > 0 {
			metrics.StreamsExcluded.WithLabelValues("failed").Add(float64(outcome.Failed))
		}
		if outcome.Filtered > 0 {
			metrics.StreamsExcluded.WithLabelValues("filtered").Add(float64(outcome.Filtered))
		}

		result.Groups = append(result.Groups, outcome)
		result.GroupsProcessed++
	}

	if progress != nil {
		progress("enforcement", 90, "running enforcement passes", 0, 6, "")
	}
	d.runEnforcement(ctx, multiLeagueIDs, &result)

	if progress != nil {
		progress("render", 95, "merging xmltv", 0, 1, "")
	}
	if doc, err := xmltv.Merge(xmltvDocs, d.Generator); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("merge xmltv: %v", err))
	} else {
		result.XMLTV = doc
	}

	if purged, err := d.Store.PurgeStale(ctx, store.DefaultPurgeParams(generation)); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("purge stale cache: %v", err))
	} else {
		result.CachePurged = purged
	}

	if d.HistoryRetentionDays > 0 {
		if purged, err := d.Store.CleanupOldHistory(ctx, d.HistoryRetentionDays); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("purge old channel history: %v", err))
		} else {
			result.HistoryPurged = purged
		}
	}

	result.CompletedAt = d.now()
	status := "completed"
	errMsg := strings.Join(result.Errors, "; ")
	if err := d.Store.FinishRun(ctx, result.RunID, status, errMsg, result.GroupsProcessed, result.CompletedAt.Sub(result.StartedAt).Seconds()); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("finish run: %v", err))
	}

	metrics.GenerationDuration.Observe(result.CompletedAt.Sub(result.StartedAt).Seconds())

	if progress != nil {
		progress("done", 100, "generation complete", total, total, "")
	}

	return result, nil
}

// runEnforcement runs the six post-processing sweeps, each isolated: a
// failure in one pass is recorded and the next pass still runs, matching
// spec's stance that the top-level driver only fails hard on its own
// unhandled errors, never on a sub-task's.
func (d *Driver) runEnforcement(ctx context.Context, multiLeagueIDs []string, result *GenerationResult) {
	if d.Keyword != nil {
		kr, err := d.Keyword.Enforce(ctx)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("keyword enforcement: %v", err))
		}
		result.Keyword = kr
	}

	if d.CrossGroup != nil && len(multiLeagueIDs) > 0 {
		cr, err := d.CrossGroup.Enforce(ctx, multiLeagueIDs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cross-group enforcement: %v", err))
		}
		result.CrossGroup = cr
	}

	if d.Ordering != nil {
		or, err := d.Ordering.Enforce(ctx)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("keyword ordering: %v", err))
		}
		result.Ordering = or
	}

	if n, err := d.cleanupOrphans(ctx); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("orphan cleanup: %v", err))
	} else {
		result.OrphansDeleted = n
	}

	if n, err := d.cleanupDisabledGroups(ctx); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("disabled-group cleanup: %v", err))
	} else {
		result.DisabledDeleted = n
	}

	if d.Gateway != nil {
		reconciler := enforcement.Reconciler{Store: d.Store, Gateway: gatewayReconcilerAdapter{gateway: d.Gateway}}
		mode := d.ReconcileMode
		if mode == "" {
			mode = enforcement.ModeDetectOnly
		}
		rr, err := reconciler.Reconcile(ctx, mode)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("reconciliation: %v", err))
		}
		result.Reconcile = rr
	}
}

// prefetch fetches every (league, day) pair any enabled group might need,
// once, so per-group matching never repeats a provider call for a
// day/league pair another group already needed. BuildPrefetch makes those
// calls one after another; no worker pool is involved.
func (d *Driver) prefetch(ctx context.Context, groupList []model.EventEPGGroup, targetDate time.Time) (map[string][]model.Event, error) {
	if d.Events == nil {
		return map[string][]model.Event{}, nil
	}

	leagueSet := map[string]bool{}
	maxDays := d.DefaultDaysAhead
	if maxDays <= 0 {
		maxDays = 3
	}
	for _, g := range groupList {
		for _, l := range g.Leagues {
			leagueSet[l] = true
		}
		if g.DaysAhead > maxDays {
			maxDays = g.DaysAhead
		}
	}
	if len(leagueSet) == 0 {
		return map[string][]model.Event{}, nil
	}
	leagues := make([]string, 0, len(leagueSet))
	for l := range leagueSet {
		leagues = append(leagues, l)
	}

	to := targetDate.AddDate(0, 0, maxDays)
	return match.BuildPrefetch(ctx, d.Events, leagues, targetDate, to)
}

func percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return current * 100 / total
}

// groupLeagueLabel is the metrics label for a group's matched/excluded
// stream counts: its single league when unambiguous, "multi" for
// multi-league groups, and "unknown" for a misconfigured group with none.
func groupLeagueLabel(group model.EventEPGGroup) string {
	if group.MultiLeague || len(group.Leagues) > 1 {
		return "multi"
	}
	if len(group.Leagues) == 1 {
		return group.Leagues[0]
	}
	return "unknown"
}
