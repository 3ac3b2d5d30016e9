// Package sqlite persists per-sample metadata (trigger descriptor
// tables, jet-uncertainty tables) and flat event records, and loads
// them back for batch processing. The schema is fixed and created on
// open; this is a loader for analysis inputs, not a general store.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/hh-analysis/eventview/internal/analysis"
	"github.com/hh-analysis/eventview/internal/analysis/jec"
	"github.com/hh-analysis/eventview/internal/analysis/ntuple"
)

// SampleStore is a sqlite-backed store of samples, their summary
// metadata and their event records.
type SampleStore struct {
	db *sql.DB
}

// Open opens (or creates) the store at path and ensures the schema
// exists.
func Open(path string) (*SampleStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			sample_id         TEXT PRIMARY KEY,
			period            TEXT NOT NULL,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS trigger_descriptors (
			sample_id         TEXT NOT NULL,
			channel           INTEGER NOT NULL,
			position          INTEGER NOT NULL,
			pattern           TEXT NOT NULL,
			PRIMARY KEY (sample_id, channel, position),
			FOREIGN KEY (sample_id) REFERENCES samples(sample_id)
		);
		CREATE TABLE IF NOT EXISTS jec_uncertainties (
			sample_id         TEXT NOT NULL,
			source            TEXT NOT NULL,
			eta_min           DOUBLE NOT NULL,
			eta_max           DOUBLE NOT NULL,
			uncertainty       DOUBLE NOT NULL,
			FOREIGN KEY (sample_id) REFERENCES samples(sample_id)
		);
		CREATE TABLE IF NOT EXISTS events (
			sample_id         TEXT NOT NULL,
			run               INTEGER NOT NULL,
			lumi              INTEGER NOT NULL,
			event             INTEGER NOT NULL,
			payload           TEXT NOT NULL,
			PRIMARY KEY (sample_id, run, lumi, event),
			FOREIGN KEY (sample_id) REFERENCES samples(sample_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sample schema: %w", err)
	}

	return &SampleStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SampleStore) Close() error { return s.db.Close() }

// PutSample registers a sample with its data-taking period.
func (s *SampleStore) PutSample(sampleID string, period analysis.Period) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO samples (sample_id, period) VALUES (?, ?)`,
		sampleID, period.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to store sample %s: %w", sampleID, err)
	}
	return nil
}

// SamplePeriod returns the data-taking period of the sample.
func (s *SampleStore) SamplePeriod(sampleID string) (analysis.Period, error) {
	var label string
	err := s.db.QueryRow(`SELECT period FROM samples WHERE sample_id = ?`, sampleID).Scan(&label)
	if err != nil {
		return 0, fmt.Errorf("failed to load sample %s: %w", sampleID, err)
	}
	return analysis.ParsePeriod(label)
}

// PutTriggerDescriptors stores the ordered trigger table of one
// channel, replacing any previous table for that channel.
func (s *SampleStore) PutTriggerDescriptors(sampleID string, channel analysis.Channel, patterns []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM trigger_descriptors WHERE sample_id = ? AND channel = ?`,
		sampleID, int(channel),
	); err != nil {
		return fmt.Errorf("failed to clear trigger descriptors: %w", err)
	}
	for i, pattern := range patterns {
		if _, err := tx.Exec(
			`INSERT INTO trigger_descriptors (sample_id, channel, position, pattern) VALUES (?, ?, ?, ?)`,
			sampleID, int(channel), i, pattern,
		); err != nil {
			return fmt.Errorf("failed to store trigger descriptor %q: %w", pattern, err)
		}
	}
	return tx.Commit()
}

// PutJecUncertainties stores the uncertainty table rows of the sample.
func (s *SampleStore) PutJecUncertainties(sampleID string, rows []jec.TableRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM jec_uncertainties WHERE sample_id = ?`, sampleID); err != nil {
		return fmt.Errorf("failed to clear jec uncertainties: %w", err)
	}
	for _, row := range rows {
		if _, err := tx.Exec(
			`INSERT INTO jec_uncertainties (sample_id, source, eta_min, eta_max, uncertainty) VALUES (?, ?, ?, ?, ?)`,
			sampleID, string(row.Source), row.EtaMin, row.EtaMax, row.RelativeUnc,
		); err != nil {
			return fmt.Errorf("failed to store jec uncertainty row: %w", err)
		}
	}
	return tx.Commit()
}

// LoadSummary assembles the SummaryInfo of the sample from its stored
// trigger descriptors and uncertainty rows. A sample with no
// uncertainty rows yields a summary without a provider.
func (s *SampleStore) LoadSummary(sampleID string) (*analysis.SummaryInfo, error) {
	rows, err := s.db.Query(
		`SELECT channel, pattern FROM trigger_descriptors WHERE sample_id = ? ORDER BY channel, position`,
		sampleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load trigger descriptors: %w", err)
	}
	defer rows.Close()

	patterns := make(map[analysis.Channel][]string)
	for rows.Next() {
		var channel int
		var pattern string
		if err := rows.Scan(&channel, &pattern); err != nil {
			return nil, err
		}
		ch := analysis.Channel(channel)
		patterns[ch] = append(patterns[ch], pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	jecRows, err := s.loadJecRows(sampleID)
	if err != nil {
		return nil, err
	}
	var provider jec.Provider
	if len(jecRows) > 0 {
		provider = jec.NewTableProvider(jecRows)
	}
	return analysis.NewSummaryInfo(patterns, provider), nil
}

func (s *SampleStore) loadJecRows(sampleID string) ([]jec.TableRow, error) {
	rows, err := s.db.Query(
		`SELECT source, eta_min, eta_max, uncertainty FROM jec_uncertainties WHERE sample_id = ?`,
		sampleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load jec uncertainties: %w", err)
	}
	defer rows.Close()

	var out []jec.TableRow
	for rows.Next() {
		var row jec.TableRow
		var source string
		if err := rows.Scan(&source, &row.EtaMin, &row.EtaMax, &row.RelativeUnc); err != nil {
			return nil, err
		}
		row.Source = jec.Source(source)
		out = append(out, row)
	}
	return out, rows.Err()
}

// PutEvent stores one flat event record for the sample.
func (s *SampleStore) PutEvent(sampleID string, event *ntuple.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %d:%d:%d: %w", event.Run, event.Lumi, event.Event, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO events (sample_id, run, lumi, event, payload) VALUES (?, ?, ?, ?, ?)`,
		sampleID, event.Run, event.Lumi, event.Event, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to store event %d:%d:%d: %w", event.Run, event.Lumi, event.Event, err)
	}
	return nil
}

// ForEachEvent streams the sample's event records in identifier order.
func (s *SampleStore) ForEachEvent(sampleID string, fn func(*ntuple.Event) error) error {
	rows, err := s.db.Query(
		`SELECT payload FROM events WHERE sample_id = ? ORDER BY run, lumi, event`,
		sampleID,
	)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return err
		}
		var event ntuple.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("failed to decode event payload: %w", err)
		}
		if err := fn(&event); err != nil {
			return err
		}
	}
	return rows.Err()
}

// EventCount returns the number of stored events for the sample.
func (s *SampleStore) EventCount(sampleID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE sample_id = ?`, sampleID).Scan(&n)
	return n, err
}
