package store

import "fmt"

// DuplicateFileRow is a single file belonging to a duplicate group.
type DuplicateFileRow struct {
	Signature string
	FilePath  string
	SizeBytes int64
}

// InsertDuplicateGroup inserts or replaces a duplicate group header.
func (s *Store) InsertDuplicateGroup(signature, strategy string, wastedBytes int64) error {
	_, err := s.db.Exec(`
		INSERT INTO duplicate_groups (signature, strategy, wasted_bytes)
		VALUES (?, ?, ?)
		ON CONFLICT(signature) DO UPDATE SET strategy = excluded.strategy, wasted_bytes = excluded.wasted_bytes
	`, signature, strategy, wastedBytes)
	return err
}

// InsertDuplicateFile records a file as a member of a duplicate group.
func (s *Store) InsertDuplicateFile(f *DuplicateFileRow) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO duplicate_group_files (signature, file_path, size_bytes)
		VALUES (?, ?, ?)
	`, f.Signature, f.FilePath, f.SizeBytes)
	return err
}

// GetDuplicateGroupFiles returns the files belonging to a duplicate group.
func (s *Store) GetDuplicateGroupFiles(signature string) ([]*DuplicateFileRow, error) {
	rows, err := s.db.Query(`
		SELECT signature, file_path, size_bytes FROM duplicate_group_files
		WHERE signature = ? ORDER BY file_path
	`, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate files: %w", err)
	}
	defer rows.Close()

	var files []*DuplicateFileRow
	for rows.Next() {
		f := &DuplicateFileRow{}
		if err := rows.Scan(&f.Signature, &f.FilePath, &f.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// CountDuplicateGroups returns the number of duplicate groups with at least
// two members (singletons are never persisted as groups by the indexer).
func (s *Store) CountDuplicateGroups() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM duplicate_groups`).Scan(&count)
	return count, err
}

// DuplicateGroupRow is the persisted header of a duplicate group.
type DuplicateGroupRow struct {
	Signature   string
	Strategy    string
	WastedBytes int64
}

// GetAllDuplicateGroups returns every duplicate group header, largest
// wasted-space first.
func (s *Store) GetAllDuplicateGroups() ([]*DuplicateGroupRow, error) {
	rows, err := s.db.Query(`
		SELECT signature, strategy, wasted_bytes FROM duplicate_groups
		ORDER BY wasted_bytes DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []*DuplicateGroupRow
	for rows.Next() {
		g := &DuplicateGroupRow{}
		if err := rows.Scan(&g.Signature, &g.Strategy, &g.WastedBytes); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ClearDuplicates removes all duplicate group state (for idempotent re-scan).
func (s *Store) ClearDuplicates() error {
	_, err := s.db.Exec(`DELETE FROM duplicate_group_files; DELETE FROM duplicate_groups`)
	return err
}
