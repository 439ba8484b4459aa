package store

import "fmt"

// FusionGroupRow is the persisted header of a fusion group.
type FusionGroupRow struct {
	ID            int64
	GroupUUID     string
	CanonicalName string
	MergeStrategy string
	Priority      int
}

// InsertFusionGroup inserts a fusion group and sets its assigned ID.
func (s *Store) InsertFusionGroup(g *FusionGroupRow) error {
	result, err := s.db.Exec(`
		INSERT INTO fusion_groups (group_uuid, canonical_name, merge_strategy, priority)
		VALUES (?, ?, ?, ?)
	`, g.GroupUUID, g.CanonicalName, g.MergeStrategy, g.Priority)
	if err != nil {
		return fmt.Errorf("failed to insert fusion group: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get fusion group ID: %w", err)
	}
	g.ID = id
	return nil
}

// AddFusionGroupMember associates a pack with a fusion group. A pack may
// belong to at most one fusion group; this is enforced by the fusion
// matcher, not by the schema.
func (s *Store) AddFusionGroupMember(groupID, packID int64) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO fusion_group_members (group_id, pack_id) VALUES (?, ?)
	`, groupID, packID)
	return err
}

// GetFusionGroupMembers returns the pack IDs belonging to a fusion group.
func (s *Store) GetFusionGroupMembers(groupID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT pack_id FROM fusion_group_members WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fusion group members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAllFusionGroups returns every fusion group, ordered by priority.
func (s *Store) GetAllFusionGroups() ([]*FusionGroupRow, error) {
	rows, err := s.db.Query(`
		SELECT id, group_uuid, canonical_name, merge_strategy, priority
		FROM fusion_groups ORDER BY priority DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fusion groups: %w", err)
	}
	defer rows.Close()

	var groups []*FusionGroupRow
	for rows.Next() {
		g := &FusionGroupRow{}
		if err := rows.Scan(&g.ID, &g.GroupUUID, &g.CanonicalName, &g.MergeStrategy, &g.Priority); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ClearFusionGroups removes all fusion group state.
func (s *Store) ClearFusionGroups() error {
	_, err := s.db.Exec(`DELETE FROM fusion_group_members; DELETE FROM fusion_groups`)
	return err
}
