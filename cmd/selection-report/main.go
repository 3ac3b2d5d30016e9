// selection-report runs the signal-jet selection over every stored
// event of one sample and writes a summary report: selection counters
// on stdout and an HTML histogram of the H->bb candidate masses.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"

	"github.com/hh-analysis/eventview/internal/analysis"
	"github.com/hh-analysis/eventview/internal/analysis/ntuple"
	"github.com/hh-analysis/eventview/internal/analysis/storage/sqlite"
)

// massHistogram accumulates H->bb candidate masses into fixed-width
// bins.
type massHistogram struct {
	min, max float64
	counts   []int
	overflow int
}

func newMassHistogram(min, max float64, bins int) *massHistogram {
	return &massHistogram{min: min, max: max, counts: make([]int, bins)}
}

func (h *massHistogram) Fill(mass float64) {
	if math.IsNaN(mass) || mass < h.min || mass >= h.max {
		h.overflow++
		return
	}
	bin := int((mass - h.min) / (h.max - h.min) * float64(len(h.counts)))
	h.counts[bin]++
}

// binLabels returns the lower edge of each bin formatted for the chart
// axis.
func (h *massHistogram) binLabels() []string {
	width := (h.max - h.min) / float64(len(h.counts))
	labels := make([]string, len(h.counts))
	for i := range labels {
		labels[i] = fmt.Sprintf("%.0f", h.min+float64(i)*width)
	}
	return labels
}

// selectionTally counts per-event selection outcomes over one sample.
type selectionTally struct {
	events     int
	views      int
	bPairs     int
	vbfPairs   int
	viewErrors int
}

func main() {
	dbPath := flag.String("db", "samples.db", "path to the sample store")
	sampleID := flag.String("sample", "", "sample identifier to process")
	periodLabel := flag.String("period", "Run2017", "data-taking period of the sample")
	orderingLabel := flag.String("ordering", "DeepCSV", "jet ordering used for the selection")
	outPath := flag.String("out", "mass_report.html", "output path for the HTML mass histogram")
	flag.Parse()

	if *sampleID == "" {
		log.Fatal("missing required -sample flag")
	}
	period, err := analysis.ParsePeriod(*periodLabel)
	if err != nil {
		log.Fatalf("invalid -period: %v", err)
	}
	ordering, err := analysis.ParseJetOrdering(*orderingLabel)
	if err != nil {
		log.Fatalf("invalid -ordering: %v", err)
	}

	runID := uuid.NewString()
	log.Printf("selection report run %s: sample=%s period=%s ordering=%s", runID, *sampleID, period, ordering)

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open sample store: %v", err)
	}
	defer store.Close()

	summary, err := store.LoadSummary(*sampleID)
	if err != nil {
		log.Fatalf("failed to load sample summary: %v", err)
	}

	tally := selectionTally{}
	hist := newMassHistogram(0, 400, 40)

	err = store.ForEachEvent(*sampleID, func(event *ntuple.Event) error {
		tally.events++
		for h := 0; h < event.NHypotheses(); h++ {
			view, err := analysis.NewEventView(event, h, period, ordering, summary, nil)
			if err != nil {
				tally.viewErrors++
				log.Printf("event %d:%d:%d hypothesis %d: %v", event.Run, event.Lumi, event.Event, h, err)
				continue
			}
			tally.views++
			if view.HasVBFJetPair() {
				tally.vbfPairs++
			}
			if !view.HasBJetPair() {
				continue
			}
			tally.bPairs++
			bb, err := view.GetHiggsBB()
			if err != nil {
				return err
			}
			hist.Fill(bb.Momentum().M())
		}
		return nil
	})
	if err != nil {
		log.Fatalf("failed to process events: %v", err)
	}

	log.Printf("processed %d events, %d views (%d failed)", tally.events, tally.views, tally.viewErrors)
	log.Printf("b-jet pairs: %d, VBF pairs: %d, mass entries outside [0,400): %d", tally.bPairs, tally.vbfPairs, hist.overflow)

	if err := writeMassChart(*outPath, *sampleID, runID, hist, tally); err != nil {
		log.Fatalf("failed to write mass histogram: %v", err)
	}
	log.Printf("wrote mass histogram to %s", *outPath)
}

// writeMassChart renders the mass histogram as a standalone HTML bar
// chart.
func writeMassChart(path, sampleID, runID string, hist *massHistogram, tally selectionTally) error {
	data := make([]opts.BarData, len(hist.counts))
	for i, n := range hist.counts {
		data[i] = opts.BarData{Value: n}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "H->bb Mass Report", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "H->bb candidate mass",
			Subtitle: fmt.Sprintf("sample=%s run=%s pairs=%d", sampleID, runID, tally.bPairs),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "mass (GeV)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "candidates"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(hist.binLabels())
	bar.AddSeries("candidates", data)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
