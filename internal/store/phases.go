package store

import (
	"database/sql"
	"fmt"
)

// UpsertPhase records or updates the state of a pipeline phase.
func (s *Store) UpsertPhase(p *PhaseRow) error {
	_, err := s.db.Exec(`
		INSERT INTO phases (phase_num, name, status, progress, started_at, completed_at, error, output_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(phase_num) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			progress = excluded.progress,
			started_at = COALESCE(excluded.started_at, phases.started_at),
			completed_at = excluded.completed_at,
			error = excluded.error,
			output_json = excluded.output_json
	`, p.PhaseNum, p.Name, p.Status, p.Progress, p.StartedAt, p.CompletedAt, p.Error, p.OutputJSON)
	return err
}

// GetPhase retrieves a single phase record by its phase number (0-5).
func (s *Store) GetPhase(phaseNum int) (*PhaseRow, error) {
	p := &PhaseRow{}
	err := s.db.QueryRow(`
		SELECT phase_num, name, status, progress, started_at, completed_at,
		       COALESCE(error, ''), COALESCE(output_json, '')
		FROM phases WHERE phase_num = ?
	`, phaseNum).Scan(&p.PhaseNum, &p.Name, &p.Status, &p.Progress,
		&p.StartedAt, &p.CompletedAt, &p.Error, &p.OutputJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phase: %w", err)
	}
	return p, nil
}

// GetAllPhases returns every phase record ordered by phase number.
func (s *Store) GetAllPhases() ([]*PhaseRow, error) {
	rows, err := s.db.Query(`
		SELECT phase_num, name, status, progress, started_at, completed_at,
		       COALESCE(error, ''), COALESCE(output_json, '')
		FROM phases ORDER BY phase_num
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query phases: %w", err)
	}
	defer rows.Close()

	var phases []*PhaseRow
	for rows.Next() {
		p := &PhaseRow{}
		if err := rows.Scan(&p.PhaseNum, &p.Name, &p.Status, &p.Progress,
			&p.StartedAt, &p.CompletedAt, &p.Error, &p.OutputJSON); err != nil {
			return nil, fmt.Errorf("failed to scan phase: %w", err)
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

// ResetPhases clears all phase records, returning the pipeline to its
// initial state.
func (s *Store) ResetPhases() error {
	_, err := s.db.Exec(`DELETE FROM phases`)
	return err
}
