// Package execute implements C9: the executor. It applies a reorganization
// plan's operations in priority order, backing up the source tree first,
// falling back to copy+delete across devices, and verifying the result
// before declaring success.
package execute

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/sample-organizer/internal/plan"
	"github.com/franz/sample-organizer/internal/report"
	"github.com/franz/sample-organizer/internal/util"
)

// Config controls executor behavior.
type Config struct {
	DryRun      bool
	RetryConfig *util.RetryConfig // nil = no retries
	Logger      *report.EventLogger
	BufferSize  int // file copy buffer size, 0 = default 128KB
}

// Executor applies planned operations against the filesystem.
type Executor struct {
	cfg Config
}

// New constructs an Executor.
func New(cfg Config) *Executor {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = &util.RetryConfig{MaxAttempts: 1}
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 128 * 1024
	}
	return &Executor{cfg: cfg}
}

// Result summarizes one Execute call.
type Result struct {
	Processed    int
	Succeeded    int
	Failed       int
	BytesWritten int64
	BackupPath   string
	RolledBack   bool
	Errors       []error
}

// Execute backs up sourceRoot, applies every operation in priority order,
// verifies the outcome, and rolls back on critical verification failure or
// when ctx is done before every operation has been applied.
func (e *Executor) Execute(ctx context.Context, ops []plan.Operation, sourceRoot string) (*Result, error) {
	result := &Result{}

	preCount, err := countFiles(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("execute: failed to count source files: %w", err)
	}

	backupPath, err := e.backup(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("execute: backup failed, aborting: %w", err)
	}
	result.BackupPath = backupPath

	for i, op := range ops {
		select {
		case <-ctx.Done():
			if !e.cfg.DryRun {
				if err := e.rollback(sourceRoot, backupPath); err != nil {
					return result, fmt.Errorf("execute: %v and rollback also failed: %w", ctx.Err(), err)
				}
				result.RolledBack = true
			}
			return result, ctx.Err()
		default:
		}

		result.Processed++
		written, err := e.apply(ctx, op)
		if err != nil {
			result.Failed++
			ops[i].Status = "failed"
			result.Errors = append(result.Errors, fmt.Errorf("%s %s -> %s: %w", op.Type, op.SourcePath, op.TargetPath, err))
			e.logExecute(op, 0, err)
			continue
		}
		result.Succeeded++
		ops[i].Status = "done"
		result.BytesWritten += written
		e.logExecute(op, written, nil)
	}

	if e.cfg.DryRun {
		return result, nil
	}

	issues := e.verify(ops, preCount)
	if len(issues) > 0 {
		if err := e.rollback(sourceRoot, backupPath); err != nil {
			return result, fmt.Errorf("execute: verification failed (%v) and rollback also failed: %w", issues, err)
		}
		result.RolledBack = true
		return result, fmt.Errorf("execute: verification failed, rolled back: %v", issues)
	}

	return result, nil
}

func (e *Executor) logExecute(op plan.Operation, bytesWritten int64, err error) {
	if e.cfg.Logger == nil {
		return
	}
	e.cfg.Logger.LogExecute(op.SourcePath, op.SourcePath, op.TargetPath, string(op.Type), bytesWritten, 0, err)
}

// backup copies sourceRoot to <parent>/<name>_backup_<iso-ts>. Backup
// success is a precondition for applying any operation.
func (e *Executor) backup(sourceRoot string) (string, error) {
	name := filepath.Base(sourceRoot)
	parent := filepath.Dir(sourceRoot)
	ts := time.Now().UTC().Format("20060102T150405Z")
	backupPath := filepath.Join(parent, fmt.Sprintf("%s_backup_%s", name, ts))

	if e.cfg.DryRun {
		return backupPath, nil
	}
	if err := copyTree(sourceRoot, backupPath, e.cfg.BufferSize, e.cfg.RetryConfig); err != nil {
		return "", err
	}
	return backupPath, nil
}

func (e *Executor) rollback(sourceRoot, backupPath string) error {
	if backupPath == "" {
		return fmt.Errorf("no backup available")
	}
	if err := os.RemoveAll(sourceRoot); err != nil {
		return fmt.Errorf("failed to clear corrupted source tree: %w", err)
	}
	return util.RetryableRename(backupPath, sourceRoot, e.cfg.RetryConfig)
}

func (e *Executor) apply(ctx context.Context, op plan.Operation) (int64, error) {
	if e.cfg.DryRun {
		return dirSize(op.SourcePath), nil
	}
	switch op.Type {
	case plan.OpUnwrap:
		return e.unwrap(op.SourcePath, op.TargetPath)
	case plan.OpClean, plan.OpMove:
		return e.relocate(ctx, op.SourcePath, op.TargetPath)
	case plan.OpFuse:
		return e.fuse(ctx, op.SourcePath, op.TargetPath)
	default:
		return 0, fmt.Errorf("unknown operation type %q", op.Type)
	}
}

// unwrap discards the wrapper at targetPath's original location in favor
// of its inner pack at sourcePath: the wrapper is renamed aside, the
// inner pack takes its place, and the emptied wrapper shell is removed.
func (e *Executor) unwrap(sourcePath, targetPath string) (int64, error) {
	shell := targetPath + ".wrapper-shell"
	if err := util.RetryableRename(targetPath, shell, e.cfg.RetryConfig); err != nil {
		return 0, fmt.Errorf("failed to set aside wrapper shell: %w", err)
	}
	// The inner pack lives inside the wrapper, so it moved with the shell.
	inner := sourcePath
	if rel, err := filepath.Rel(targetPath, sourcePath); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		inner = filepath.Join(shell, rel)
	}
	size := dirSize(inner)
	if err := util.RetryableRename(inner, targetPath, e.cfg.RetryConfig); err != nil {
		util.RetryableRename(shell, targetPath, e.cfg.RetryConfig) // best-effort undo
		return 0, fmt.Errorf("failed to promote inner pack: %w", err)
	}
	if err := os.RemoveAll(shell); err != nil {
		util.WarnLog("failed to remove emptied wrapper shell %s: %v", shell, err)
	}
	return size, nil
}

// relocate renames sourcePath to targetPath, falling back to recursive
// copy then delete-source when rename fails across devices.
func (e *Executor) relocate(ctx context.Context, sourcePath, targetPath string) (int64, error) {
	if err := util.RetryableMkdirAll(filepath.Dir(targetPath), 0755, e.cfg.RetryConfig); err != nil {
		return 0, fmt.Errorf("failed to create parent directory: %w", err)
	}
	size := dirSize(sourcePath)

	if err := util.RetryableRename(sourcePath, targetPath, e.cfg.RetryConfig); err == nil {
		return size, nil
	}

	if err := copyTree(sourcePath, targetPath, e.cfg.BufferSize, e.cfg.RetryConfig); err != nil {
		return 0, fmt.Errorf("cross-device copy failed: %w", err)
	}
	if err := os.RemoveAll(sourcePath); err != nil {
		util.WarnLog("failed to delete source after cross-device move %s: %v", sourcePath, err)
	}
	return size, nil
}

// fuse merges sourcePath's contents into targetPath, suffixing any
// colliding child names, then removes the emptied source directory.
func (e *Executor) fuse(ctx context.Context, sourcePath, targetPath string) (int64, error) {
	if err := util.RetryableMkdirAll(targetPath, 0755, e.cfg.RetryConfig); err != nil {
		return 0, fmt.Errorf("failed to create fusion target: %w", err)
	}

	entries, err := os.ReadDir(sourcePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read fusion source: %w", err)
	}

	var size int64
	for _, entry := range entries {
		childSrc := filepath.Join(sourcePath, entry.Name())
		childDst := uniqueChildPath(targetPath, entry.Name())
		if err := util.RetryableRename(childSrc, childDst, e.cfg.RetryConfig); err != nil {
			if err := copyTree(childSrc, childDst, e.cfg.BufferSize, e.cfg.RetryConfig); err != nil {
				return size, fmt.Errorf("failed to fuse %s: %w", childSrc, err)
			}
			os.RemoveAll(childSrc)
		}
		size += dirSize(childDst)
	}

	if err := os.RemoveAll(sourcePath); err != nil {
		util.WarnLog("failed to remove emptied fusion source %s: %v", sourcePath, err)
	}
	return size, nil
}

func uniqueChildPath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// verify confirms every move/clean/unwrap target exists, is non-empty,
// and that the overall file count projects within 5% of the pre-execution
// count. It returns a list of human-readable critical issues.
func (e *Executor) verify(ops []plan.Operation, preCount int) []string {
	var issues []string
	var postCount int

	seen := make(map[string]bool)
	for _, op := range ops {
		if seen[op.TargetPath] {
			continue
		}
		seen[op.TargetPath] = true

		info, err := os.Stat(op.TargetPath)
		if err != nil {
			issues = append(issues, fmt.Sprintf("target %s does not exist: %v", op.TargetPath, err))
			continue
		}
		if !info.IsDir() {
			continue
		}
		count, _ := countFiles(op.TargetPath)
		if count == 0 {
			issues = append(issues, fmt.Sprintf("target %s is unexpectedly empty", op.TargetPath))
		}
		postCount += count
	}

	if preCount > 0 {
		tolerance := float64(preCount) * 0.05
		diff := float64(preCount - postCount)
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			issues = append(issues, fmt.Sprintf("file count drifted from %d to %d, exceeding 5%% tolerance", preCount, postCount))
		}
	}
	return issues
}

// countFiles recursively counts regular files under root.
func countFiles(root string) (int, error) {
	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}

// dirSize sums file sizes under path (0 if path is a single file or
// unreadable); used for byte-count reporting, not verification.
func dirSize(path string) int64 {
	var total int64
	filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total
}

// copyTree recursively copies src to dst, preserving directory structure.
// Files are copied via a temporary ".part" sibling and atomically renamed
// into place, the same atomic-write idiom used for single-file copies.
func copyTree(src, dst string, bufferSize int, retryCfg *util.RetryConfig) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, bufferSize, retryCfg)
	}

	if err := util.RetryableMkdirAll(dst, info.Mode(), retryCfg); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		childSrc := filepath.Join(src, entry.Name())
		childDst := filepath.Join(dst, entry.Name())
		if err := copyTree(childSrc, childDst, bufferSize, retryCfg); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(srcPath, destPath string, bufferSize int, retryCfg *util.RetryConfig) error {
	src, err := util.RetryableOpen(srcPath, retryCfg)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	tempPath := destPath + ".part"
	dest, err := util.RetryableCreate(tempPath, retryCfg)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := copyWithBuffer(dest, src, bufferSize); err != nil {
		dest.Close()
		util.RetryableRemove(tempPath, retryCfg)
		return fmt.Errorf("failed to copy: %w", err)
	}
	dest.Close()

	if err := util.RetryableRename(tempPath, destPath, retryCfg); err != nil {
		util.RetryableRemove(tempPath, retryCfg)
		return fmt.Errorf("failed to rename into place: %w", err)
	}
	return nil
}

func copyWithBuffer(dst io.Writer, src io.Reader, bufferSize int) (int64, error) {
	if bufferSize <= 0 {
		bufferSize = 128 * 1024
	}
	return io.CopyBuffer(dst, src, make([]byte, bufferSize))
}

// String renders a one-line human-readable summary of the result.
func (r *Result) String() string {
	return fmt.Sprintf("%d/%d operations succeeded, %s written", r.Succeeded, r.Processed, humanize.Bytes(uint64(r.BytesWritten)))
}
