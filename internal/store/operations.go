package store

import (
	"fmt"
	"time"
)

// InsertOperation inserts a planned operation and sets its assigned ID.
func (s *Store) InsertOperation(op *OperationRow) error {
	result, err := s.db.Exec(`
		INSERT INTO operations (op_type, source_path, target_path, priority, rationale, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, op.OpType, op.SourcePath, op.TargetPath, op.Priority, op.Rationale, op.Status)
	if err != nil {
		return fmt.Errorf("failed to insert operation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get operation ID: %w", err)
	}
	op.ID = id
	return nil
}

// GetOperationsByPlan returns every operation ordered by priority, matching
// the execution order the executor must follow (unwrap, clean, fuse, move).
func (s *Store) GetOperationsByPlan() ([]*OperationRow, error) {
	rows, err := s.db.Query(`
		SELECT id, op_type, source_path, COALESCE(target_path, ''), priority,
		       COALESCE(rationale, ''), status, COALESCE(error, ''), created_at, executed_at
		FROM operations ORDER BY priority, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []*OperationRow
	for rows.Next() {
		op := &OperationRow{}
		if err := rows.Scan(&op.ID, &op.OpType, &op.SourcePath, &op.TargetPath,
			&op.Priority, &op.Rationale, &op.Status, &op.Error, &op.CreatedAt, &op.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// UpdateOperationStatus records the outcome of executing an operation.
func (s *Store) UpdateOperationStatus(id int64, status, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE operations SET status = ?, error = ?, executed_at = ? WHERE id = ?
	`, status, errMsg, time.Now(), id)
	return err
}

// CountOperationsByStatus returns the number of operations in a given status.
func (s *Store) CountOperationsByStatus(status string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM operations WHERE status = ?`, status).Scan(&count)
	return count, err
}

// ClearOperations removes all operations (for idempotent re-planning).
func (s *Store) ClearOperations() error {
	_, err := s.db.Exec(`DELETE FROM operations`)
	return err
}
