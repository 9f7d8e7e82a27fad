package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/eventsel/internal/features"
	"github.com/banshee-data/eventsel/internal/sample"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// Run is one row of analysis_runs.
type Run struct {
	ID          string
	SampleLabel string
	Policy      string
	Status      string
	EventsTotal int
	EventsKept  int
	Error       string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// BeginRun records the start of an analysis run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, label string, policy sample.Policy) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_runs (run_id, sample_label, policy, status, started_unix_nanos) VALUES (?, ?, ?, ?, ?)`,
		id, label, policy.String(), RunRunning, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("begin run for %s: %w", label, err)
	}
	return id, nil
}

// FinishRun sets the final status and counts of a run. runErr is recorded
// when non-nil.
func (s *Store) FinishRun(ctx context.Context, runID, status string, total, kept int, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE analysis_runs
		SET status = ?, events_total = ?, events_kept = ?, error = ?, finished_unix_nanos = ?
		WHERE run_id = ?`, status, total, kept, msg, time.Now().UnixNano(), runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		r          Run
		total      sql.NullInt64
		kept       sql.NullInt64
		msg        sql.NullString
		startedAt  int64
		finishedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, sample_label, policy, status, events_total, events_kept, error, started_unix_nanos, finished_unix_nanos
		FROM analysis_runs WHERE run_id = ?`, runID).
		Scan(&r.ID, &r.SampleLabel, &r.Policy, &r.Status, &total, &kept, &msg, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	r.EventsTotal = int(total.Int64)
	r.EventsKept = int(kept.Int64)
	r.Error = msg.String
	r.StartedAt = time.Unix(0, startedAt)
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64)
		r.FinishedAt = &t
	}
	return &r, nil
}

// WriteFeatures stores the feature columns of table for the given stage.
func (s *Store) WriteFeatures(ctx context.Context, runID string, stage sample.Stage, table sample.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO event_features (
			run_id, stage, event_index,
			num_particles, num_showers, num_tracks, num_p, num_mu,
			trk_eng, shwr_eng, visible_energy, tot_momentum, invariant_mass,
			sphericity, aplanarity, fw0, fw1, fw2
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range table {
		f := row.Features
		if _, err := stmt.ExecContext(ctx, runID, string(stage), row.Index,
			f.NumParticles, f.NumShowers, f.NumTracks, f.NumProtons, f.NumMuons,
			f.TrackEnergy, f.ShowerEnergy, f.VisibleEnergy, f.TotalMomentum, f.InvariantMass,
			f.Sphericity, f.Aplanarity, f.FW0, f.FW1, f.FW2); err != nil {
			return fmt.Errorf("write features %s/%d: %w", stage, row.Index, err)
		}
	}
	return tx.Commit()
}

// WriteWeights stores the weight column of table for the given stage.
func (s *Store) WriteWeights(ctx context.Context, runID string, stage sample.Stage, table sample.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO event_weights (run_id, stage, event_index, weight) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range table {
		if _, err := stmt.ExecContext(ctx, runID, string(stage), row.Index, row.Weight); err != nil {
			return fmt.Errorf("write weight %s/%d: %w", stage, row.Index, err)
		}
	}
	return tx.Commit()
}

// ReadFeatures returns the stored feature rows of a stage in event order.
// Weights are left zero; see ReadWeights.
func (s *Store) ReadFeatures(ctx context.Context, runID string, stage sample.Stage) (sample.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_index,
		       num_particles, num_showers, num_tracks, num_p, num_mu,
		       trk_eng, shwr_eng, visible_energy, tot_momentum, invariant_mass,
		       sphericity, aplanarity, fw0, fw1, fw2
		FROM event_features WHERE run_id = ? AND stage = ? ORDER BY event_index`, runID, string(stage))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var table sample.Table
	for rows.Next() {
		var (
			row sample.Row
			f   features.Record
		)
		if err := rows.Scan(&row.Index,
			&f.NumParticles, &f.NumShowers, &f.NumTracks, &f.NumProtons, &f.NumMuons,
			&f.TrackEnergy, &f.ShowerEnergy, &f.VisibleEnergy, &f.TotalMomentum, &f.InvariantMass,
			&f.Sphericity, &f.Aplanarity, &f.FW0, &f.FW1, &f.FW2); err != nil {
			return nil, err
		}
		row.Features = f
		table = append(table, row)
	}
	return table, rows.Err()
}

// ReadWeights returns the stored weights of a stage in event order.
func (s *Store) ReadWeights(ctx context.Context, runID string, stage sample.Stage) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT weight FROM event_weights WHERE run_id = ? AND stage = ? ORDER BY event_index`, runID, string(stage))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var w float64
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
