package analysis

import (
	"fmt"

	"github.com/hh-analysis/eventview/internal/analysis/jec"
)

// SummaryInfo is the per-sample metadata shared read-only by every
// event of a processing job: one trigger descriptor table per channel
// and, optionally, the jet-energy-uncertainty provider used for
// systematic shifts. It is built once per sample and never mutated
// afterwards, so readers need no synchronization.
type SummaryInfo struct {
	triggerDescriptors map[Channel]*TriggerDescriptorCollection
	jecUncertainties   jec.Provider
}

// NewSummaryInfo assembles a summary from the per-channel trigger
// patterns of the sample and an optional uncertainty provider (nil
// when the sample carries no uncertainty tables).
func NewSummaryInfo(triggerPatterns map[Channel][]string, uncertainties jec.Provider) *SummaryInfo {
	s := &SummaryInfo{
		triggerDescriptors: make(map[Channel]*TriggerDescriptorCollection, len(triggerPatterns)),
		jecUncertainties:   uncertainties,
	}
	for channel, patterns := range triggerPatterns {
		table := NewTriggerDescriptorCollection()
		for _, p := range patterns {
			table.Add(p)
		}
		s.triggerDescriptors[channel] = table
	}
	return s
}

// GetTriggerDescriptors returns the trigger table of the channel.
// Every channel queried must be present in the summary.
func (s *SummaryInfo) GetTriggerDescriptors(channel Channel) (*TriggerDescriptorCollection, error) {
	table, ok := s.triggerDescriptors[channel]
	if !ok {
		return nil, fmt.Errorf("%w: no trigger information for channel %s", ErrMissingMetadata, channel)
	}
	return table, nil
}

// GetJecUncertainties returns the jet-energy-uncertainty provider.
func (s *SummaryInfo) GetJecUncertainties() (jec.Provider, error) {
	if s.jecUncertainties == nil {
		return nil, fmt.Errorf("%w: jet uncertainties not stored", ErrMissingMetadata)
	}
	return s.jecUncertainties, nil
}
