package store

// Schema v1 - initial database schema for the sample pack organizer.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Packs detected by the pack detector (C3)
CREATE TABLE IF NOT EXISTS packs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  pack_uuid TEXT UNIQUE NOT NULL,
  name TEXT NOT NULL,
  source_path TEXT NOT NULL,
  pack_type TEXT NOT NULL,
  confidence REAL NOT NULL DEFAULT 0,
  reasoning_json TEXT,
  audio_count INTEGER DEFAULT 0,
  preset_count INTEGER DEFAULT 0,
  other_count INTEGER DEFAULT 0,
  total_size INTEGER DEFAULT 0,
  needs_reorg INTEGER DEFAULT 0,
  should_extract INTEGER DEFAULT 0,
  should_recurse INTEGER DEFAULT 0,
  parent_pack_id INTEGER REFERENCES packs(id) ON DELETE SET NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_packs_source_path ON packs(source_path);
CREATE INDEX IF NOT EXISTS idx_packs_pack_type ON packs(pack_type);
CREATE INDEX IF NOT EXISTS idx_packs_parent ON packs(parent_pack_id);

-- Duplicate groups found by the duplicate indexer (C4)
CREATE TABLE IF NOT EXISTS duplicate_groups (
  signature TEXT PRIMARY KEY,
  strategy TEXT NOT NULL DEFAULT 'ManualReview',
  wasted_bytes INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS duplicate_group_files (
  signature TEXT REFERENCES duplicate_groups(signature) ON DELETE CASCADE,
  file_path TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  PRIMARY KEY (signature, file_path)
);

CREATE INDEX IF NOT EXISTS idx_dup_files_signature ON duplicate_group_files(signature);

-- Fusion groups produced by the fusion matcher (C7)
CREATE TABLE IF NOT EXISTS fusion_groups (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  group_uuid TEXT UNIQUE NOT NULL,
  canonical_name TEXT NOT NULL,
  merge_strategy TEXT NOT NULL,
  priority INTEGER DEFAULT 0,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS fusion_group_members (
  group_id INTEGER REFERENCES fusion_groups(id) ON DELETE CASCADE,
  pack_id INTEGER REFERENCES packs(id) ON DELETE CASCADE,
  PRIMARY KEY (group_id, pack_id)
);

-- Operations produced by the reorganization planner (C8)
CREATE TABLE IF NOT EXISTS operations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  op_type TEXT NOT NULL,
  source_path TEXT NOT NULL,
  target_path TEXT,
  priority INTEGER NOT NULL,
  rationale TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  error TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  executed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_operations_status ON operations(status);
CREATE INDEX IF NOT EXISTS idx_operations_priority ON operations(priority);

-- Phase records for the pipeline controller (C11)
CREATE TABLE IF NOT EXISTS phases (
  phase_num INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'Pending',
  progress REAL DEFAULT 0,
  started_at DATETIME,
  completed_at DATETIME,
  error TEXT,
  output_json TEXT
);
`
