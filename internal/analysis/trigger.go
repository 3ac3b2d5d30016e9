package analysis

import "fmt"

// TriggerDescriptorCollection is the ordered trigger table of one
// channel. Bit i of an event's accept/match masks corresponds to
// pattern i of the table.
type TriggerDescriptorCollection struct {
	patterns []string
	index    map[string]int
}

// NewTriggerDescriptorCollection returns an empty table.
func NewTriggerDescriptorCollection() *TriggerDescriptorCollection {
	return &TriggerDescriptorCollection{index: make(map[string]int)}
}

// Add appends a trigger pattern to the table. Re-adding an existing
// pattern keeps its original position.
func (c *TriggerDescriptorCollection) Add(pattern string) {
	if _, ok := c.index[pattern]; ok {
		return
	}
	c.index[pattern] = len(c.patterns)
	c.patterns = append(c.patterns, pattern)
}

// Size returns the number of patterns in the table.
func (c *TriggerDescriptorCollection) Size() int { return len(c.patterns) }

// Pattern returns the pattern at position i.
func (c *TriggerDescriptorCollection) Pattern(i int) string { return c.patterns[i] }

// IndexOf returns the position of pattern in the table.
func (c *TriggerDescriptorCollection) IndexOf(pattern string) (int, bool) {
	i, ok := c.index[pattern]
	return i, ok
}

// TriggerResults combines an event's accept and match bitmasks with
// the channel's descriptor table. The masks come from the record; the
// table comes from the per-sample summary and may be absent, in which
// case per-pattern queries fail with ErrMissingMetadata.
type TriggerResults struct {
	acceptBits  uint64
	matchBits   uint64
	descriptors *TriggerDescriptorCollection
}

// SetAcceptBits stores the per-event accept mask.
func (t *TriggerResults) SetAcceptBits(bits uint64) { t.acceptBits = bits }

// SetMatchBits stores the per-hypothesis leg-match mask.
func (t *TriggerResults) SetMatchBits(bits uint64) { t.matchBits = bits }

// SetDescriptors attaches the channel's trigger table.
func (t *TriggerResults) SetDescriptors(d *TriggerDescriptorCollection) { t.descriptors = d }

// AcceptBits returns the raw accept mask.
func (t *TriggerResults) AcceptBits() uint64 { return t.acceptBits }

// MatchBits returns the raw match mask.
func (t *TriggerResults) MatchBits() uint64 { return t.matchBits }

// AnyAccept reports whether any selected trigger fired.
func (t *TriggerResults) AnyAccept() bool { return t.acceptBits != 0 }

// AnyMatch reports whether the hypothesis legs match any fired
// trigger.
func (t *TriggerResults) AnyMatch() bool { return t.acceptBits&t.matchBits != 0 }

func (t *TriggerResults) patternBit(pattern string) (uint64, error) {
	if t.descriptors == nil {
		return 0, fmt.Errorf("%w: no trigger descriptors attached", ErrMissingMetadata)
	}
	i, ok := t.descriptors.IndexOf(pattern)
	if !ok {
		return 0, fmt.Errorf("%w: trigger pattern %q not in table", ErrMissingMetadata, pattern)
	}
	return uint64(1) << uint(i), nil
}

// Accept reports whether the trigger with the given pattern fired.
func (t *TriggerResults) Accept(pattern string) (bool, error) {
	bit, err := t.patternBit(pattern)
	if err != nil {
		return false, err
	}
	return t.acceptBits&bit != 0, nil
}

// Match reports whether the trigger fired and the hypothesis legs are
// matched to it.
func (t *TriggerResults) Match(pattern string) (bool, error) {
	bit, err := t.patternBit(pattern)
	if err != nil {
		return false, err
	}
	return t.acceptBits&t.matchBits&bit != 0, nil
}
