package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/titooo7/teamarr-sub000/internal/model"
	"github.com/titooo7/teamarr-sub000/internal/numbering"
)

// DuplicateMode controls how a group (or an exception keyword overriding a
// group) handles a second matched stream for the same (group, event).
type DuplicateMode string

const (
	ModeConsolidate DuplicateMode = "consolidate"
	ModeSeparate    DuplicateMode = "separate"
	ModeIgnore      DuplicateMode = "ignore"
)

// MatchedStream is one stream the matcher has already bound to an event,
// ready for lifecycle routing.
type MatchedStream struct {
	Stream model.RawStream
	Event  model.Event
}

// NameInputs carries the per-event template inputs the caller's context
// builder has already resolved into {variable: value} form, plus the
// group's own template string and the plain away/home names used by the
// untemplated fallback.
type NameInputs struct {
	Template     string
	LogoTemplate string
	Vars         map[string]string
	AwayName     string
	HomeName     string
	HomeLogoURL  string
}

// Store is the persistence surface ChannelLifecycleService needs. Concrete
// queries live in internal/store; this interface only names what the
// lifecycle algorithm itself requires, so it can be driven by a fake store
// in tests without a database.
type Store interface {
	FindExistingChannel(ctx context.Context, groupID, eventID, eventProvider, exceptionKeyword string) (model.ManagedChannel, bool, error)
	ChannelsForPrimaryStream(ctx context.Context, groupID, eventID, eventProvider, streamID string) (model.ManagedChannel, bool, error)
	NextStreamPriority(ctx context.Context, channelID string) (int, error)
	StreamExistsOnChannel(ctx context.Context, channelID, streamID string) (bool, error)
	AddStreamToChannel(ctx context.Context, channelID, streamID, streamName string, priority int) error
	CreateManagedChannel(ctx context.Context, channel model.ManagedChannel, streamID, streamName string) (model.ManagedChannel, error)
	MarkChannelDeleted(ctx context.Context, channelID, reason string) error
	LogChannelHistory(ctx context.Context, channelID, changeType, changeSource, notes string) error
	ChannelsPendingDeletion(ctx context.Context, now time.Time) ([]model.ManagedChannel, error)
	ExceptionKeywords(ctx context.Context, groupID string) ([]ExceptionKeyword, error)
}

// SkippedStream records a matched stream the lifecycle service declined to
// act on, and why.
type SkippedStream struct {
	StreamID string
	Reason   string
}

// ProcessResult summarizes one call to ProcessMatchedStreams.
type ProcessResult struct {
	Created  []model.ManagedChannel
	Updated  []model.ManagedChannel
	Skipped  []SkippedStream
	Errors   []string
}

// Service is the Go counterpart of the reference ChannelLifecycleService:
// it owns the (group, event) -> ManagedChannel mapping, timing gates,
// duplicate-handling, exception-keyword routing, naming/logo resolution,
// and scheduled deletion.
type Service struct {
	Store     Store
	Numbering *numbering.Numbering
	Now       func() time.Time
	Timezone  *time.Location

	// DefaultDurationHours is used to estimate an event's end time for the
	// delete-timing calculation when the event itself carries no duration.
	DefaultDurationHours float64
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) tz() *time.Location {
	if s.Timezone != nil {
		return s.Timezone
	}
	return time.UTC
}

// ProcessMatchedStreams routes every matched stream in streams onto a
// ManagedChannel: existing channels are consolidated into, separated from,
// or ignored per the effective duplicate mode (group default, unless an
// exception keyword overrides it); new channels are created subject to the
// group's create-timing gate, numbered via numbering, named, and given a
// scheduled_delete_at per the group's delete-timing rule.
func (s *Service) ProcessMatchedStreams(
	ctx context.Context,
	streams []MatchedStream,
	group model.EventEPGGroup,
	groupInfo numbering.GroupInfo,
	createTiming CreateTiming,
	deleteTiming DeleteTiming,
	names func(event model.Event) NameInputs,
) (ProcessResult, error) {
	result := ProcessResult{}

	keywords, err := s.Store.ExceptionKeywords(ctx, group.ID)
	if err != nil {
		return result, fmt.Errorf("lifecycle: load exception keywords: %w", err)
	}

	for _, ms := range streams {
		streamID := ms.Stream.StreamID
		streamName := ms.Stream.Name
		event := ms.Event

		matchedKeyword, keywordBehavior, hasKeyword := CheckExceptionKeyword(streamName, keywords)

		mode := DuplicateMode(group.DuplicateHandling)
		if mode == "" {
			mode = ModeConsolidate
		}
		if hasKeyword {
			mode = keywordBehavior
		}

		existing, found, err := s.findExisting(ctx, group.ID, event.ID, event.Provider, matchedKeyword, streamID, mode)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stream %s: %v", streamID, err))
			continue
		}

		if found {
			updated, skipped, err := s.handleExisting(ctx, existing, streamID, streamName, mode)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("stream %s: %v", streamID, err))
				continue
			}
			if skipped != nil {
				result.Skipped = append(result.Skipped, *skipped)
			} else if updated != nil {
				result.Updated = append(result.Updated, *updated)
			}
			continue
		}

		decision := ShouldCreateChannel(createTiming, event.StartTime, s.now(), s.tz())
		if !decision.ShouldAct {
			result.Skipped = append(result.Skipped, SkippedStream{StreamID: streamID, Reason: decision.Reason})
			continue
		}

		created, err := s.createChannel(ctx, group, groupInfo, event, streamID, streamName, matchedKeyword, deleteTiming, names)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stream %s: %v", streamID, err))
			continue
		}
		result.Created = append(result.Created, created)
	}

	return result, nil
}

func (s *Service) findExisting(ctx context.Context, groupID, eventID, eventProvider, exceptionKeyword, streamID string, mode DuplicateMode) (model.ManagedChannel, bool, error) {
	if mode == ModeSeparate {
		return s.Store.ChannelsForPrimaryStream(ctx, groupID, eventID, eventProvider, streamID)
	}
	return s.Store.FindExistingChannel(ctx, groupID, eventID, eventProvider, exceptionKeyword)
}

// handleExisting implements the three duplicate-mode branches against an
// already-found channel: consolidate attaches the stream (if not already
// present) and logs history; separate just records the channel as the
// stream's home without attaching (ProcessMatchedStreams's findExisting
// already scoped the lookup to this stream's own primary-stream channel);
// ignore records nothing and discards the duplicate.
func (s *Service) handleExisting(ctx context.Context, existing model.ManagedChannel, streamID, streamName string, mode DuplicateMode) (*model.ManagedChannel, *SkippedStream, error) {
	switch mode {
	case ModeIgnore:
		return nil, &SkippedStream{StreamID: streamID, Reason: "ignored_duplicate"}, nil
	case ModeSeparate:
		return &existing, nil, nil
	default: // consolidate
		already, err := s.Store.StreamExistsOnChannel(ctx, existing.ID, streamID)
		if err != nil {
			return nil, nil, fmt.Errorf("check existing stream: %w", err)
		}
		if already {
			return &existing, nil, nil
		}
		priority, err := s.Store.NextStreamPriority(ctx, existing.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("next stream priority: %w", err)
		}
		if err := s.Store.AddStreamToChannel(ctx, existing.ID, streamID, streamName, priority); err != nil {
			return nil, nil, fmt.Errorf("attach stream: %w", err)
		}
		if err := s.Store.LogChannelHistory(ctx, existing.ID, "stream_added", "generation", fmt.Sprintf("Added stream %q (consolidate mode)", streamName)); err != nil {
			return nil, nil, fmt.Errorf("log history: %w", err)
		}
		return &existing, nil, nil
	}
}

func (s *Service) createChannel(
	ctx context.Context,
	group model.EventEPGGroup,
	groupInfo numbering.GroupInfo,
	event model.Event,
	streamID, streamName, exceptionKeyword string,
	deleteTiming DeleteTiming,
	names func(event model.Event) NameInputs,
) (model.ManagedChannel, error) {
	tvgID := GenerateEventTVGID(event.ID, event.Provider)

	number, err := s.Numbering.NextChannelNumber(ctx, groupInfo)
	if err != nil {
		return model.ManagedChannel{}, fmt.Errorf("assign channel number: %w", err)
	}

	var name, logoURL string
	if names != nil {
		in := names(event)
		name = GenerateChannelName(in.Template, in.Vars, in.AwayName, in.HomeName, exceptionKeyword)
		logoURL = ResolveLogoURL(in.LogoTemplate, in.Vars, in.HomeLogoURL)
	}

	duration := event.DurationHours
	if duration <= 0 {
		duration = s.DefaultDurationHours
	}
	var deleteAt *time.Time
	if deleteTiming != DeleteStreamRemoved {
		at := ScheduledDeleteAt(deleteTiming, event.StartTime, duration, s.tz())
		deleteAt = &at
	}

	channel := model.ManagedChannel{
		GroupID:           group.ID,
		ChannelNumber:     number,
		Name:              name,
		TVGID:             tvgID,
		LogoURL:           logoURL,
		EventID:           event.ID,
		EventProvider:     event.Provider,
		League:            event.League,
		ExceptionKeyword:  exceptionKeyword,
		CreatedAt:         s.now(),
		ScheduledDeleteAt: deleteAt,
		Numbering:         string(group.NumberingMode),
	}

	created, err := s.Store.CreateManagedChannel(ctx, channel, streamID, streamName)
	if err != nil {
		return model.ManagedChannel{}, fmt.Errorf("create channel: %w", err)
	}
	return created, nil
}

// ResetChannels purges every channel this system owns (recognized by its
// tvg-id prefix) via the external gateway, then marks each deleted in the
// store with reason "scheduled_reset". It is a forced-recreation sweep, not
// a retention decision: the next generation run recreates every channel
// still wanted from scratch, which downstream aggregators use as a cheap
// way to invalidate any logo/guide caching keyed off channel identity.
func (s *Service) ResetChannels(ctx context.Context, active []model.ManagedChannel, deleteFn func(ctx context.Context, channel model.ManagedChannel) error) (int, error) {
	count := 0
	for _, ch := range active {
		if !HasEventPrefix(ch.TVGID) {
			continue
		}
		if deleteFn != nil {
			if err := deleteFn(ctx, ch); err != nil {
				return count, fmt.Errorf("lifecycle: reset channel %s: %w", ch.ID, err)
			}
		}
		if err := s.Store.MarkChannelDeleted(ctx, ch.ID, "scheduled_reset"); err != nil {
			return count, fmt.Errorf("lifecycle: mark channel %s deleted: %w", ch.ID, err)
		}
		if err := s.Store.LogChannelHistory(ctx, ch.ID, "deleted", "scheduled_reset", "periodic channel reset"); err != nil {
			return count, fmt.Errorf("lifecycle: log history for %s: %w", ch.ID, err)
		}
		count++
	}
	return count, nil
}

// ProcessScheduledDeletions deletes every channel whose scheduled_delete_at
// has passed, via the external gateway, then marks it deleted in the
// store with reason "scheduled".
func (s *Service) ProcessScheduledDeletions(ctx context.Context, deleteFn func(ctx context.Context, channel model.ManagedChannel) error) (int, error) {
	due, err := s.Store.ChannelsPendingDeletion(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("lifecycle: list pending deletions: %w", err)
	}

	count := 0
	for _, ch := range due {
		if deleteFn != nil {
			if err := deleteFn(ctx, ch); err != nil {
				return count, fmt.Errorf("lifecycle: delete channel %s: %w", ch.ID, err)
			}
		}
		if err := s.Store.MarkChannelDeleted(ctx, ch.ID, "scheduled"); err != nil {
			return count, fmt.Errorf("lifecycle: mark channel %s deleted: %w", ch.ID, err)
		}
		if err := s.Store.LogChannelHistory(ctx, ch.ID, "deleted", "scheduler", "scheduled_delete_at reached"); err != nil {
			return count, fmt.Errorf("lifecycle: log history for %s: %w", ch.ID, err)
		}
		count++
	}
	return count, nil
}
