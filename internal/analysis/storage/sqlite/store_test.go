package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hh-analysis/eventview/internal/analysis"
	"github.com/hh-analysis/eventview/internal/analysis/jec"
	"github.com/hh-analysis/eventview/internal/analysis/ntuple"
	"github.com/hh-analysis/eventview/internal/analysis/p4"
)

func openTestStore(t *testing.T) *SampleStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "samples.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEvent(run uint32, event uint64) *ntuple.Event {
	return &ntuple.Event{
		Run:       run,
		Lumi:      12,
		Event:     event,
		ChannelID: int(analysis.ChannelMuTau),
		Rho:       18.7,

		LepP4:     []p4.Vec{p4.PtEtaPhiM(28, 0.4, 0.3, 0.106), p4.PtEtaPhiM(42, -0.9, -2.2, 1.2)},
		LepCharge: []int{+1, -1},
		LepIso:    []float64{0.05, 0.8},
		LepType:   []int{2, 3},

		FirstDaughterIndexes:  []int{0},
		SecondDaughterIndexes: []int{1},

		JetP4:          []p4.Vec{p4.PtEtaPhiM(60, 0.5, 0.1, 8)},
		JetCSV:         []float64{0.9},
		JetDeepCSV:     []float64{0.9},
		JetDeepFlavour: []float64{0.9},
		JetHHBTag:      []float64{0.9},
		JetPuID:        []uint16{0b1110},
		JetResolution:  []float64{0.1},

		MetP4:  p4.PtEtaPhiM(52, 0, 1.7, 0),
		MetCov: [3]float64{400, 20, 380},

		TriggerAccepts: 0b101,
		TriggerMatches: []uint64{0b001},
	}
}

func TestSampleRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	require.NoError(t, store.PutSample("ggHH_2017", analysis.Run2017))
	period, err := store.SamplePeriod("ggHH_2017")
	require.NoError(t, err)
	assert.Equal(t, analysis.Run2017, period)

	_, err = store.SamplePeriod("no-such-sample")
	assert.Error(t, err)
}

func TestPutSampleIsIdempotent(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	require.NoError(t, store.PutSample("ggHH_2016", analysis.Run2016))
	require.NoError(t, store.PutSample("ggHH_2016", analysis.Run2017))

	period, err := store.SamplePeriod("ggHH_2016")
	require.NoError(t, err)
	assert.Equal(t, analysis.Run2017, period, "re-registering replaces the period")
}

func TestLoadSummaryAssemblesMetadata(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.PutSample("ggHH_2017", analysis.Run2017))

	muTau := []string{"HLT_IsoMu24_v", "HLT_IsoMu27_v"}
	tauTau := []string{"HLT_DoubleTau35_v"}
	require.NoError(t, store.PutTriggerDescriptors("ggHH_2017", analysis.ChannelMuTau, muTau))
	require.NoError(t, store.PutTriggerDescriptors("ggHH_2017", analysis.ChannelTauTau, tauTau))
	require.NoError(t, store.PutJecUncertainties("ggHH_2017", []jec.TableRow{
		{Source: jec.SourceTotal, EtaMin: 0, EtaMax: 5.2, RelativeUnc: 0.03},
	}))

	summary, err := store.LoadSummary("ggHH_2017")
	require.NoError(t, err)

	table, err := summary.GetTriggerDescriptors(analysis.ChannelMuTau)
	require.NoError(t, err)
	require.Equal(t, 2, table.Size())
	assert.Equal(t, "HLT_IsoMu24_v", table.Pattern(0))
	assert.Equal(t, "HLT_IsoMu27_v", table.Pattern(1))

	_, err = summary.GetTriggerDescriptors(analysis.ChannelETau)
	assert.ErrorIs(t, err, analysis.ErrMissingMetadata)

	provider, err := summary.GetJecUncertainties()
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestLoadSummaryWithoutUncertaintyRows(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.PutSample("data_2018", analysis.Run2018))
	require.NoError(t, store.PutTriggerDescriptors("data_2018", analysis.ChannelMuTau, []string{"HLT_IsoMu24_v"}))

	summary, err := store.LoadSummary("data_2018")
	require.NoError(t, err)

	_, err = summary.GetJecUncertainties()
	assert.ErrorIs(t, err, analysis.ErrMissingMetadata)
}

func TestPutTriggerDescriptorsReplacesTable(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.PutSample("ggHH_2017", analysis.Run2017))

	require.NoError(t, store.PutTriggerDescriptors("ggHH_2017", analysis.ChannelMuTau, []string{"HLT_IsoMu24_v", "HLT_IsoMu27_v"}))
	require.NoError(t, store.PutTriggerDescriptors("ggHH_2017", analysis.ChannelMuTau, []string{"HLT_IsoMu27_v"}))

	summary, err := store.LoadSummary("ggHH_2017")
	require.NoError(t, err)
	table, err := summary.GetTriggerDescriptors(analysis.ChannelMuTau)
	require.NoError(t, err)
	require.Equal(t, 1, table.Size())
	assert.Equal(t, "HLT_IsoMu27_v", table.Pattern(0))
}

func TestEventRoundTripAndOrdering(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.PutSample("ggHH_2017", analysis.Run2017))

	// Insert out of identifier order; the stream must come back sorted.
	second := testEvent(300200, 77)
	first := testEvent(300100, 91)
	require.NoError(t, store.PutEvent("ggHH_2017", second))
	require.NoError(t, store.PutEvent("ggHH_2017", first))

	n, err := store.EventCount("ggHH_2017")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var loaded []*ntuple.Event
	err = store.ForEachEvent("ggHH_2017", func(event *ntuple.Event) error {
		loaded = append(loaded, event)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Empty(t, cmp.Diff(first, loaded[0]))
	assert.Empty(t, cmp.Diff(second, loaded[1]))
}

func TestPutEventReplacesExistingRecord(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.PutSample("ggHH_2017", analysis.Run2017))

	event := testEvent(300100, 91)
	require.NoError(t, store.PutEvent("ggHH_2017", event))
	event.Rho = 25.1
	require.NoError(t, store.PutEvent("ggHH_2017", event))

	n, err := store.EventCount("ggHH_2017")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = store.ForEachEvent("ggHH_2017", func(loaded *ntuple.Event) error {
		assert.Equal(t, 25.1, loaded.Rho)
		return nil
	})
	require.NoError(t, err)
}

func TestForEachEventStopsOnCallbackError(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.PutSample("ggHH_2017", analysis.Run2017))
	require.NoError(t, store.PutEvent("ggHH_2017", testEvent(300100, 1)))
	require.NoError(t, store.PutEvent("ggHH_2017", testEvent(300100, 2)))

	calls := 0
	err := store.ForEachEvent("ggHH_2017", func(*ntuple.Event) error {
		calls++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

func TestLoadedEventBuildsView(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	require.NoError(t, store.PutSample("ggHH_2017", analysis.Run2017))
	require.NoError(t, store.PutTriggerDescriptors("ggHH_2017", analysis.ChannelMuTau, []string{"HLT_IsoMu24_v"}))
	require.NoError(t, store.PutEvent("ggHH_2017", testEvent(300100, 91)))

	summary, err := store.LoadSummary("ggHH_2017")
	require.NoError(t, err)

	err = store.ForEachEvent("ggHH_2017", func(event *ntuple.Event) error {
		view, err := analysis.NewEventView(event, 0, analysis.Run2017, analysis.OrderByDeepCSV, summary, nil)
		require.NoError(t, err)

		accepted, err := view.GetTriggerResults().Accept("HLT_IsoMu24_v")
		require.NoError(t, err)
		assert.True(t, accepted)
		return nil
	})
	require.NoError(t, err)
}
