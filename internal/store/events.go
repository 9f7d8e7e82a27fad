package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/banshee-data/eventsel/internal/geom"
	"github.com/banshee-data/eventsel/internal/particle"
	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/weights"
)

// InsertEvent stores ev as event index of the named sample, with its
// particles and hit profiles, in one transaction.
func (s *Store) InsertEvent(ctx context.Context, sampleName string, index int, ev particle.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (sample, event_index, vertex_x, vertex_y, vertex_z) VALUES (?, ?, ?, ?, ?)`,
		sampleName, index, ev.Vertex.X, ev.Vertex.Y, ev.Vertex.Z)
	if err != nil {
		return fmt.Errorf("insert event %s/%d: %w", sampleName, index, err)
	}
	eventID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for slot, p := range ev.Particles {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO particles (
				event_id, slot, kind, dir_x, dir_y, dir_z, momentum,
				pid_0, pid_1, pid_2, energy_0, energy_1, energy_2, best_plane
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			eventID, slot, p.Kind.String(), p.Direction.X, p.Direction.Y, p.Direction.Z, p.Momentum,
			p.PID[0], p.PID[1], p.PID[2], p.PlaneEnergy[0], p.PlaneEnergy[1], p.PlaneEnergy[2], p.BestPlane)
		if err != nil {
			return fmt.Errorf("insert particle %d of event %s/%d: %w", slot, sampleName, index, err)
		}
		if !p.IsTrack() {
			continue
		}
		particleID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for plane, hits := range p.Hits {
			for seq, h := range hits {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO track_hits (particle_id, plane, seq, x, y, z, dedx) VALUES (?, ?, ?, ?, ?, ?, ?)`,
					particleID, plane, seq, h.Pos.X, h.Pos.Y, h.Pos.Z, h.DEdx); err != nil {
					return fmt.Errorf("insert hit %d/%d of event %s/%d: %w", plane, seq, sampleName, index, err)
				}
			}
		}
	}

	return tx.Commit()
}

// InsertReference replaces the named reference sample with refs.
func (s *Store) InsertReference(ctx context.Context, name string, refs []weights.Reference) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reference_vertices WHERE sample = ?`, name); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reference_vertices (sample, seq, vertex_x, vertex_y, vertex_z, weight) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range refs {
		if _, err := stmt.ExecContext(ctx, name, i, r.Vertex.X, r.Vertex.Y, r.Vertex.Z, r.Weight); err != nil {
			return fmt.Errorf("insert reference %s/%d: %w", name, i, err)
		}
	}
	return tx.Commit()
}

// CountEvents returns the number of stored events of a sample.
func (s *Store) CountEvents(ctx context.Context, sampleName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE sample = ?`, sampleName).Scan(&n)
	return n, err
}

type eventRow struct {
	id      int64
	index   int
	x, y, z sql.NullFloat64
}

// ScanEvents calls fn for each event of the sample in event_index order.
// A NULL vertex coordinate is reported as a *sample.SchemaError.
func (s *Store) ScanEvents(ctx context.Context, sampleName string, fn func(index int, ev particle.Event) error) error {
	heads, err := s.eventHeads(ctx, sampleName)
	if err != nil {
		return err
	}

	for _, h := range heads {
		if err := ctx.Err(); err != nil {
			return err
		}
		if field := firstNull([]string{"vertex_x", "vertex_y", "vertex_z"}, h.x, h.y, h.z); field != "" {
			return &sample.SchemaError{
				Sample: sampleName,
				Field:  field,
				Err:    fmt.Errorf("NULL at event_index %d", h.index),
			}
		}
		ev := particle.Event{Vertex: geom.Vec3{X: h.x.Float64, Y: h.y.Float64, Z: h.z.Float64}}
		if ev.Particles, err = s.loadParticles(ctx, h.id); err != nil {
			return fmt.Errorf("event %s/%d: %w", sampleName, h.index, err)
		}
		if err := fn(h.index, ev); err != nil {
			return err
		}
	}
	return nil
}

// eventHeads reads the event rows up front so no result set stays open
// while particles are loaded.
func (s *Store) eventHeads(ctx context.Context, sampleName string) ([]eventRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_index, vertex_x, vertex_y, vertex_z
		FROM events WHERE sample = ? ORDER BY event_index`, sampleName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var heads []eventRow
	for rows.Next() {
		var h eventRow
		if err := rows.Scan(&h.id, &h.index, &h.x, &h.y, &h.z); err != nil {
			return nil, err
		}
		heads = append(heads, h)
	}
	return heads, rows.Err()
}

func (s *Store) loadParticles(ctx context.Context, eventID int64) ([]particle.Particle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT particle_id, kind, dir_x, dir_y, dir_z, momentum,
		       pid_0, pid_1, pid_2, energy_0, energy_1, energy_2, best_plane
		FROM particles WHERE event_id = ? ORDER BY slot`, eventID)
	if err != nil {
		return nil, err
	}

	var parts []particle.Particle
	var trackIDs []int64
	var trackSlots []int
	for rows.Next() {
		var (
			id   int64
			kind string
			p    particle.Particle
		)
		if err := rows.Scan(&id, &kind, &p.Direction.X, &p.Direction.Y, &p.Direction.Z, &p.Momentum,
			&p.PID[0], &p.PID[1], &p.PID[2],
			&p.PlaneEnergy[0], &p.PlaneEnergy[1], &p.PlaneEnergy[2], &p.BestPlane); err != nil {
			rows.Close()
			return nil, err
		}
		switch kind {
		case "track":
			p.Kind = particle.KindTrack
			trackIDs = append(trackIDs, id)
			trackSlots = append(trackSlots, len(parts))
		case "shower":
			p.Kind = particle.KindShower
		case "none":
			p.Kind = particle.KindNone
		default:
			rows.Close()
			return nil, fmt.Errorf("particle %d: unknown kind %q", id, kind)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i, id := range trackIDs {
		hits, err := s.loadHits(ctx, id)
		if err != nil {
			return nil, err
		}
		parts[trackSlots[i]].Hits = hits
	}
	return parts, nil
}

func (s *Store) loadHits(ctx context.Context, particleID int64) ([particle.NumPlanes][]particle.Hit, error) {
	var hits [particle.NumPlanes][]particle.Hit
	rows, err := s.db.QueryContext(ctx, `
		SELECT plane, x, y, z, dedx FROM track_hits
		WHERE particle_id = ? ORDER BY plane, seq`, particleID)
	if err != nil {
		return hits, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			plane int
			h     particle.Hit
		)
		if err := rows.Scan(&plane, &h.Pos.X, &h.Pos.Y, &h.Pos.Z, &h.DEdx); err != nil {
			return hits, err
		}
		hits[plane] = append(hits[plane], h)
	}
	return hits, rows.Err()
}

// LoadReference reads the named reference sample in insertion order. NULL
// vertex or weight columns are reported as a *sample.SchemaError.
func (s *Store) LoadReference(ctx context.Context, name string) ([]weights.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, vertex_x, vertex_y, vertex_z, weight
		FROM reference_vertices WHERE sample = ? ORDER BY seq`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []weights.Reference
	for rows.Next() {
		var (
			seq        int
			x, y, z, w sql.NullFloat64
		)
		if err := rows.Scan(&seq, &x, &y, &z, &w); err != nil {
			return nil, err
		}
		if field := firstNull([]string{"vertex_x", "vertex_y", "vertex_z", "weight"}, x, y, z, w); field != "" {
			return nil, &sample.SchemaError{
				Sample: name,
				Field:  field,
				Err:    fmt.Errorf("NULL in reference row %d", seq),
			}
		}
		refs = append(refs, weights.Reference{
			Vertex: geom.Vec3{X: x.Float64, Y: y.Float64, Z: z.Float64},
			Weight: w.Float64,
		})
	}
	return refs, rows.Err()
}

// firstNull returns the name of the first invalid value, or "".
func firstNull(names []string, vals ...sql.NullFloat64) string {
	for i, v := range vals {
		if !v.Valid {
			return names[i]
		}
	}
	return ""
}
