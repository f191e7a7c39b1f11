package lifecycle

import (
	"context"
	"fmt"

	"github.com/titooo7/teamarr-sub000/internal/model"
)

// ProcessChildStreams routes streams matched under a child group onto its
// parent group's already-existing channels. Unlike ProcessMatchedStreams, a
// child group never creates a channel of its own — per spec a stream whose
// event has no existing parent channel yet is skipped rather than spawning
// a duplicate, since the parent group is expected to classify that event
// itself in the same run.
func (s *Service) ProcessChildStreams(ctx context.Context, streams []MatchedStream, parentGroupID string, group model.EventEPGGroup) (ProcessResult, error) {
	result := ProcessResult{}

	keywords, err := s.Store.ExceptionKeywords(ctx, parentGroupID)
	if err != nil {
		return result, fmt.Errorf("lifecycle: load parent exception keywords: %w", err)
	}

	for _, ms := range streams {
		streamID := ms.Stream.StreamID
		streamName := ms.Stream.Name
		event := ms.Event

		matchedKeyword, _, _ := CheckExceptionKeyword(streamName, keywords)

		existing, found, err := s.Store.FindExistingChannel(ctx, parentGroupID, event.ID, event.Provider, matchedKeyword)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stream %s: %v", streamID, err))
			continue
		}
		if !found {
			result.Skipped = append(result.Skipped, SkippedStream{StreamID: streamID, Reason: "no_parent_channel"})
			continue
		}

		already, err := s.Store.StreamExistsOnChannel(ctx, existing.ID, streamID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stream %s: %v", streamID, err))
			continue
		}
		if already {
			result.Updated = append(result.Updated, existing)
			continue
		}

		priority, err := s.Store.NextStreamPriority(ctx, existing.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stream %s: %v", streamID, err))
			continue
		}
		if err := s.Store.AddStreamToChannel(ctx, existing.ID, streamID, streamName, priority); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stream %s: %v", streamID, err))
			continue
		}
		_ = s.Store.LogChannelHistory(ctx, existing.ID, "stream_added", "child_group",
			fmt.Sprintf("added stream %q from child group %q", streamName, group.Name))
		result.Updated = append(result.Updated, existing)
	}

	return result, nil
}
