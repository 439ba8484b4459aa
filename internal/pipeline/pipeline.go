// Package pipeline implements C11: the phase controller. It drives the
// organizer through six phases (Preparation, Discovery, Classification,
// Matrix, Organization, Validation) as an explicit, resumable state
// machine rather than a single long-running call, so a host process can
// suspend at a checkpoint, show the user a choice, and resume later.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/franz/sample-organizer/internal/classify"
	"github.com/franz/sample-organizer/internal/dedupe"
	"github.com/franz/sample-organizer/internal/detect"
	"github.com/franz/sample-organizer/internal/execute"
	"github.com/franz/sample-organizer/internal/fusion"
	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/plan"
	"github.com/franz/sample-organizer/internal/report"
	"github.com/franz/sample-organizer/internal/snapshot"
	"github.com/franz/sample-organizer/internal/store"
	"github.com/franz/sample-organizer/internal/structure"
	"github.com/franz/sample-organizer/internal/taxonomy"
	"github.com/franz/sample-organizer/internal/util"
	"github.com/franz/sample-organizer/internal/validate"
)

// Phase identifies one of the six pipeline stages.
type Phase int

const (
	PhasePreparation Phase = iota
	PhaseDiscovery
	PhaseClassification
	PhaseMatrix
	PhaseOrganization
	PhaseValidation
)

var phaseNames = [...]string{
	"Preparation", "Discovery", "Classification", "Matrix", "Organization", "Validation",
}

func (p Phase) String() string {
	if int(p) < 0 || int(p) >= len(phaseNames) {
		return "Unknown"
	}
	return phaseNames[p]
}

// Status is the controller's overall run status.
type Status string

const (
	StatusPending      Status = "pending"
	StatusRunning      Status = "running"
	StatusAwaitingUser Status = "awaiting_user"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// Outcome is the variant a phase function resolves to, matching the
// control contract execute(input) -> Completed|AwaitingUser|Failed.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeAwaitingUser Outcome = "awaiting_user"
	OutcomeFailed       Outcome = "failed"
)

// PendingState is frozen at a checkpoint and handed back verbatim by the
// caller to ContinuePhase.
type PendingState struct {
	Phase Phase
	Step  string
	Data  interface{}
}

// PhaseResult is what a phase function, ExecutePhase, or ContinuePhase
// returns.
type PhaseResult struct {
	Outcome Outcome
	Output  interface{}
	Pending *PendingState
	Err     error
}

// EventKind is the type of a pipeline event.
type EventKind string

const (
	EventPhaseStart        EventKind = "phase:start"
	EventPhaseProgress     EventKind = "phase:progress"
	EventUserActionNeeded  EventKind = "phase:user-action-required"
	EventPhaseComplete     EventKind = "phase:complete"
	EventPhaseError        EventKind = "phase:error"
)

// Event is one emission on the pipeline's event stream.
type Event struct {
	Kind     EventKind
	Phase    Phase
	Progress float64
	Message  string
	Err      error
}

// Emitter receives pipeline events. A nil Emitter is valid; events are
// simply dropped.
type Emitter func(Event)

// DefaultMaxOrganizationDuration bounds how long phase 4 may run before
// the controller forces a rollback and fails the phase.
const DefaultMaxOrganizationDuration = 30 * time.Minute

// Config configures a Controller.
type Config struct {
	SourcePath              string
	DestPath                string
	Store                   *store.Store
	Logger                  *report.EventLogger
	Registry                *taxonomy.Registry
	Emit                    Emitter
	MaxOrganizationDuration time.Duration
	// NASMode overrides network-filesystem auto-detection when set: true
	// forces NAS-tuned executor settings, false forces local defaults.
	// Left nil, SourcePath/DestPath are probed automatically.
	NASMode *bool
}

// Controller drives the six-phase state machine. It is not safe for
// concurrent use by multiple goroutines issuing commands simultaneously;
// the pipeline itself is single-threaded and cooperative by design.
type Controller struct {
	cfg         Config
	mu          sync.Mutex
	current     Phase
	status      Status
	lastErr     error
	outputs     map[Phase]interface{}
	stopped     bool
	organizing  bool
	runID       string
	snapshotDir string
}

// New constructs a Controller. Defaults are applied for an unset
// MaxOrganizationDuration.
func New(cfg Config) *Controller {
	if cfg.MaxOrganizationDuration <= 0 {
		cfg.MaxOrganizationDuration = DefaultMaxOrganizationDuration
	}
	return &Controller{
		cfg:         cfg,
		status:      StatusPending,
		outputs:     make(map[Phase]interface{}),
		runID:       uuid.NewString(),
		snapshotDir: filepath.Join(cfg.SourcePath, snapshot.StateDirName),
	}
}

func (c *Controller) emit(e Event) {
	if c.cfg.Emit != nil {
		c.cfg.Emit(e)
	}
}

// Initialize creates the pipeline state and produces the initial snapshot.
func (c *Controller) Initialize(ctx context.Context) (*snapshot.Result, error) {
	builder := snapshot.NewBuilder(snapshot.Config{SourcePath: c.cfg.SourcePath})
	result, err := builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot failed: %w", err)
	}

	if err := c.writeSnapshotJSON(snapshot.OriginalSnapshotFile, result.Root); err != nil {
		util.WarnLog("failed to persist initial snapshot: %v", err)
	}

	for p := PhasePreparation; p <= PhaseValidation; p++ {
		_ = c.cfg.Store.UpsertPhase(&store.PhaseRow{PhaseNum: int(p), Name: p.String(), Status: "pending"})
	}

	c.current = PhasePreparation
	c.status = StatusPending
	return result, nil
}

// Stop requests cancellation at the next suspension point.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

func (c *Controller) stopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// GetState returns the current phase, status, and last error (if any).
func (c *Controller) GetState() (Phase, Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.status, c.lastErr
}

// GetPhaseData returns the stored output of a completed phase.
func (c *Controller) GetPhaseData(p Phase) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.outputs[p]
	return out, ok
}

// IsOrganizing reports whether phase 4 currently holds the exclusive
// logical lock on the source tree; read-only components must not run
// concurrently with it.
func (c *Controller) IsOrganizing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.organizing
}

// ExecutePhase runs the given phase to completion or suspension.
func (c *Controller) ExecutePhase(ctx context.Context, p Phase, input interface{}) (PhaseResult, error) {
	return c.runPhase(ctx, p, phaseInput{Data: input})
}

// ContinuePhase resumes a suspended phase with the user's choice and the
// pending state the caller was handed at suspension time.
func (c *Controller) ContinuePhase(ctx context.Context, p Phase, userChoice string, pending *PendingState) (PhaseResult, error) {
	return c.runPhase(ctx, p, phaseInput{Resume: true, UserChoice: userChoice, Pending: pending})
}

type phaseInput struct {
	Resume     bool
	UserChoice string
	Pending    *PendingState
	Data       interface{}
}

func (c *Controller) runPhase(ctx context.Context, p Phase, in phaseInput) (PhaseResult, error) {
	if c.stopRequested() {
		return PhaseResult{Outcome: OutcomeFailed, Err: fmt.Errorf("pipeline stopped")}, nil
	}

	c.mu.Lock()
	c.status = StatusRunning
	c.mu.Unlock()
	c.emit(Event{Kind: EventPhaseStart, Phase: p})

	var result PhaseResult
	var err error

	switch p {
	case PhasePreparation:
		result, err = c.runPreparation(ctx, in)
	case PhaseDiscovery:
		result, err = c.runDiscovery(ctx, in)
	case PhaseClassification:
		result, err = c.runClassification(ctx, in)
	case PhaseMatrix:
		result, err = c.runMatrix(ctx, in)
	case PhaseOrganization:
		result, err = c.runOrganization(ctx, in)
	case PhaseValidation:
		result, err = c.runValidation(ctx, in)
	default:
		return PhaseResult{Outcome: OutcomeFailed, Err: fmt.Errorf("unknown phase %v", p)}, nil
	}

	if err != nil && result.Outcome == "" {
		result = PhaseResult{Outcome: OutcomeFailed, Err: err}
	}

	c.mu.Lock()
	switch result.Outcome {
	case OutcomeCompleted:
		c.outputs[p] = result.Output
		c.status = StatusCompleted
		c.lastErr = nil
		if p < PhaseValidation {
			c.current = p + 1
		}
	case OutcomeAwaitingUser:
		c.status = StatusAwaitingUser
	case OutcomeFailed:
		c.status = StatusFailed
		c.lastErr = result.Err
	}
	c.mu.Unlock()

	outputJSON, _ := json.Marshal(result.Output)
	row := &store.PhaseRow{PhaseNum: int(p), Name: p.String(), OutputJSON: string(outputJSON)}
	switch result.Outcome {
	case OutcomeCompleted:
		row.Status = "completed"
		row.Progress = 1
		c.emit(Event{Kind: EventPhaseComplete, Phase: p})
	case OutcomeAwaitingUser:
		row.Status = "awaiting_user"
		c.emit(Event{Kind: EventUserActionNeeded, Phase: p})
	case OutcomeFailed:
		row.Status = "failed"
		if result.Err != nil {
			row.Error = result.Err.Error()
		}
		c.emit(Event{Kind: EventPhaseError, Phase: p, Err: result.Err})
	}
	_ = c.cfg.Store.UpsertPhase(row)

	return result, nil
}

func (c *Controller) progress(p Phase, pct float64, msg string) {
	c.emit(Event{Kind: EventPhaseProgress, Phase: p, Progress: pct, Message: msg})
}

func (c *Controller) writeSnapshotJSON(filename string, root *model.Node) error {
	if err := os.MkdirAll(c.snapshotDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.snapshotDir, filename), data, 0644)
}

// --- Phase 0: Preparation ---

// PreparationOutput is phase 0's result.
type PreparationOutput struct {
	Snapshot      *snapshot.Result
	WrapperPacks  int
	Unwrapped     int
	BackupPath    string
}

// execConfig builds an execute.Config tuned for the pipeline's source and
// destination filesystems. NAS-backed paths get a larger copy buffer and
// automatic retries; local filesystems keep the executor's own defaults.
func (c *Controller) execConfig() execute.Config {
	nas, err := util.AutoTuneForPath(c.cfg.SourcePath, c.cfg.DestPath, c.cfg.NASMode, runtime.NumCPU())
	if err != nil || !nas.IsNASMode {
		return execute.Config{Logger: c.cfg.Logger}
	}
	return execute.Config{
		Logger:      c.cfg.Logger,
		BufferSize:  nas.BufferSize,
		RetryConfig: util.NASRetryConfig(),
	}
}

func (c *Controller) runPreparation(ctx context.Context, in phaseInput) (PhaseResult, error) {
	builder := snapshot.NewBuilder(snapshot.Config{SourcePath: c.cfg.SourcePath})
	snap, err := builder.Build(ctx)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("preparation scan failed: %w", err)
	}
	c.progress(PhasePreparation, 0.5, "scanned source tree")

	det := detect.New(c.cfg.Registry)
	packs := det.Detect(snap.Root)

	var wrapperOps []plan.Operation
	for _, pk := range packs {
		if pk.ShouldExtract && len(pk.SubPacks) == 1 {
			wrapperOps = append(wrapperOps, plan.Operation{
				Type:       plan.OpUnwrap,
				SourcePath: pk.SubPacks[0].SourcePath,
				TargetPath: pk.SourcePath,
				Priority:   1,
			})
		}
	}

	if !in.Resume {
		if len(wrapperOps) == 0 {
			return PhaseResult{Outcome: OutcomeCompleted, Output: &PreparationOutput{Snapshot: snap, WrapperPacks: 0}}, nil
		}
		return PhaseResult{
			Outcome: OutcomeAwaitingUser,
			Pending: &PendingState{Phase: PhasePreparation, Step: "confirm-unwrap", Data: wrapperOps},
		}, nil
	}

	out := &PreparationOutput{Snapshot: snap, WrapperPacks: len(wrapperOps)}
	if in.UserChoice == "approve" && len(wrapperOps) > 0 {
		exec := execute.New(c.execConfig())
		res, err := exec.Execute(ctx, wrapperOps, c.cfg.SourcePath)
		if err != nil {
			return PhaseResult{}, fmt.Errorf("preparation unwrap failed: %w", err)
		}
		out.Unwrapped = res.Succeeded
		out.BackupPath = res.BackupPath
	}

	c.progress(PhasePreparation, 1, "preparation complete")
	return PhaseResult{Outcome: OutcomeCompleted, Output: out}, nil
}

// --- Phase 1: Discovery ---

// DiscoveryOutput is phase 1's result.
type DiscoveryOutput struct {
	Packs           []*detect.DetectedPack
	DuplicateGroups []dedupe.Group
}

func (c *Controller) runDiscovery(ctx context.Context, in phaseInput) (PhaseResult, error) {
	builder := snapshot.NewBuilder(snapshot.Config{SourcePath: c.cfg.SourcePath})
	snap, err := builder.Build(ctx)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("discovery scan failed: %w", err)
	}

	det := detect.New(c.cfg.Registry)
	packs := det.Detect(snap.Root)
	c.progress(PhaseDiscovery, 0.4, fmt.Sprintf("detected %d packs", len(packs)))

	for _, pk := range packs {
		reasoningJSON, _ := json.Marshal(pk.Reasoning)
		_ = c.cfg.Store.InsertPack(&store.PackRow{
			PackUUID:      pk.ID,
			Name:          pk.Name,
			SourcePath:    pk.SourcePath,
			PackType:      string(pk.PackType),
			Confidence:    pk.Confidence,
			ReasoningJSON: string(reasoningJSON),
			AudioCount:    pk.AudioCount,
			PresetCount:   pk.PresetCount,
			OtherCount:    pk.OtherCount,
			TotalSize:     pk.TotalSize,
			NeedsReorg:    pk.NeedsReorganization,
			ShouldExtract: pk.ShouldExtract,
			ShouldRecurse: pk.ShouldRecurseInside,
		})
	}

	indexer := dedupe.New(dedupe.Config{})
	groups, err := indexer.Index(snap.Root)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("duplicate indexing failed: %w", err)
	}
	c.progress(PhaseDiscovery, 0.8, fmt.Sprintf("found %d duplicate groups", len(groups)))

	for _, g := range groups {
		if err := c.cfg.Store.InsertDuplicateGroup(g.Signature, string(g.Strategy), g.WastedBytes()); err != nil {
			continue
		}
		for _, f := range g.Files {
			_ = c.cfg.Store.InsertDuplicateFile(&store.DuplicateFileRow{Signature: g.Signature, FilePath: f.Path, SizeBytes: f.Size})
		}
	}

	out := &DiscoveryOutput{Packs: packs, DuplicateGroups: groups}

	if !in.Resume {
		return PhaseResult{
			Outcome: OutcomeAwaitingUser,
			Output:  out,
			Pending: &PendingState{Phase: PhaseDiscovery, Step: "review-duplicates", Data: out},
		}, nil
	}

	return PhaseResult{Outcome: OutcomeCompleted, Output: out}, nil
}

// --- Phase 2: Classification ---

// QuarantineThreshold is the minimum pack confidence admitted directly
// into the classified set; anything below is quarantined for manual
// review instead.
const QuarantineThreshold = 0.5

// ClassificationOutput is phase 2's result.
type ClassificationOutput struct {
	Enriched    []*classify.EnrichedPack
	Quarantined []*classify.EnrichedPack
}

func (c *Controller) runClassification(ctx context.Context, in phaseInput) (PhaseResult, error) {
	prepOut, ok := c.GetPhaseData(PhaseDiscovery)
	if !ok {
		return PhaseResult{}, fmt.Errorf("classification requires discovery output")
	}
	discovery := prepOut.(*DiscoveryOutput)

	classifier := classify.New(c.cfg.Registry)
	enriched := classifier.Classify(discovery.Packs)
	c.progress(PhaseClassification, 0.5, fmt.Sprintf("classified %d packs", len(enriched)))

	var kept, quarantined []*classify.EnrichedPack
	for _, e := range enriched {
		if e.Confidence < QuarantineThreshold {
			quarantined = append(quarantined, e)
		} else {
			kept = append(kept, e)
		}
	}

	out := &ClassificationOutput{Enriched: kept, Quarantined: quarantined}

	if !in.Resume {
		return PhaseResult{
			Outcome: OutcomeAwaitingUser,
			Output:  out,
			Pending: &PendingState{Phase: PhaseClassification, Step: "review-quarantine", Data: out},
		}, nil
	}

	return PhaseResult{Outcome: OutcomeCompleted, Output: out}, nil
}

// --- Phase 3: Matrix ---

// MatrixOutput is phase 3's result.
type MatrixOutput struct {
	Proposals    []structure.Proposal
	Selected     structure.Proposal
	FusionGroups []fusion.Group
}

func (c *Controller) runMatrix(ctx context.Context, in phaseInput) (PhaseResult, error) {
	classOut, ok := c.GetPhaseData(PhaseClassification)
	if !ok {
		return PhaseResult{}, fmt.Errorf("matrix requires classification output")
	}
	classification := classOut.(*ClassificationOutput)

	discOut, ok := c.GetPhaseData(PhaseDiscovery)
	if !ok {
		return PhaseResult{}, fmt.Errorf("matrix requires discovery output")
	}
	discovery := discOut.(*DiscoveryOutput)

	proposals := structure.Propose(classification.Enriched)
	c.progress(PhaseMatrix, 0.4, fmt.Sprintf("generated %d structure proposals", len(proposals)))

	groups := fusion.Match(discovery.Packs)
	c.progress(PhaseMatrix, 0.7, fmt.Sprintf("found %d fusion groups", len(groups)))

	for _, g := range groups {
		row := &store.FusionGroupRow{GroupUUID: g.ID, CanonicalName: g.CanonicalName, MergeStrategy: string(g.MergeStrategy), Priority: g.Priority}
		if err := c.cfg.Store.InsertFusionGroup(row); err != nil {
			continue
		}
	}

	var selected structure.Proposal
	for _, p := range proposals {
		if p.Recommended {
			selected = p
			break
		}
	}

	if !in.Resume {
		return PhaseResult{
			Outcome: OutcomeAwaitingUser,
			Output:  &MatrixOutput{Proposals: proposals, Selected: selected, FusionGroups: groups},
			Pending: &PendingState{Phase: PhaseMatrix, Step: "choose-structure", Data: proposals},
		}, nil
	}

	if in.UserChoice != "" {
		for _, p := range proposals {
			if p.ID == in.UserChoice {
				selected = p
				break
			}
		}
	}

	return PhaseResult{Outcome: OutcomeCompleted, Output: &MatrixOutput{Proposals: proposals, Selected: selected, FusionGroups: groups}}, nil
}

// --- Phase 4: Organization ---

// OrganizationOutput is phase 4's result.
type OrganizationOutput struct {
	Operations []plan.Operation
	Result     *execute.Result
}

func (c *Controller) runOrganization(ctx context.Context, in phaseInput) (PhaseResult, error) {
	classOut, ok := c.GetPhaseData(PhaseClassification)
	if !ok {
		return PhaseResult{}, fmt.Errorf("organization requires classification output")
	}
	classification := classOut.(*ClassificationOutput)

	matrixOut, ok := c.GetPhaseData(PhaseMatrix)
	if !ok {
		return PhaseResult{}, fmt.Errorf("organization requires matrix output")
	}
	matrix := matrixOut.(*MatrixOutput)

	planner := plan.New(c.cfg.DestPath)
	ops, err := planner.Plan(classification.Enriched, matrix.Selected, matrix.FusionGroups)
	if err != nil {
		return PhaseResult{}, fmt.Errorf("planning failed: %w", err)
	}
	for _, op := range ops {
		row := &store.OperationRow{OpType: string(op.Type), SourcePath: op.SourcePath, TargetPath: op.TargetPath, Priority: op.Priority, Rationale: op.Rationale, Status: "pending"}
		_ = c.cfg.Store.InsertOperation(row)
	}
	c.progress(PhaseOrganization, 0.2, fmt.Sprintf("planned %d operations", len(ops)))

	c.mu.Lock()
	c.organizing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.organizing = false
		c.mu.Unlock()
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.MaxOrganizationDuration)
	defer cancel()

	exec := execute.New(c.execConfig())
	result, err := exec.Execute(timeoutCtx, ops, c.cfg.SourcePath)
	if timeoutCtx.Err() == context.DeadlineExceeded {
		return PhaseResult{Outcome: OutcomeFailed, Err: fmt.Errorf("organization exceeded max execution time of %v, rolled back", c.cfg.MaxOrganizationDuration)}, nil
	}
	if err != nil {
		return PhaseResult{}, fmt.Errorf("execution failed: %w", err)
	}

	c.progress(PhaseOrganization, 1, "organization complete")
	return PhaseResult{Outcome: OutcomeCompleted, Output: &OrganizationOutput{Operations: ops, Result: result}}, nil
}

// --- Phase 5: Validation ---

// ValidationOutput is phase 5's result.
type ValidationOutput struct {
	Report *validate.Report
}

func (c *Controller) runValidation(ctx context.Context, in phaseInput) (PhaseResult, error) {
	orgOut, ok := c.GetPhaseData(PhaseOrganization)
	if !ok {
		return PhaseResult{}, fmt.Errorf("validation requires organization output")
	}
	organization := orgOut.(*OrganizationOutput)

	remaining, _ := c.cfg.Store.CountDuplicateGroups()

	preCount := 0
	for _, op := range organization.Operations {
		if op.Type == plan.OpMove || op.Type == plan.OpFuse {
			preCount++
		}
	}

	r := validate.Validate(validate.Input{
		TargetRoot:               c.cfg.DestPath,
		PreFileCount:             preCount,
		Operations:               organization.Operations,
		DuplicateGroupsRemaining: remaining,
	})
	c.progress(PhaseValidation, 1, fmt.Sprintf("validation score %.2f, passed=%t", r.Score, r.Passed))

	if !r.Passed {
		return PhaseResult{Outcome: OutcomeCompleted, Output: &ValidationOutput{Report: r}, Err: fmt.Errorf("validation did not pass")}, nil
	}
	return PhaseResult{Outcome: OutcomeCompleted, Output: &ValidationOutput{Report: r}}, nil
}
