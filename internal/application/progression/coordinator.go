// Package progression contains the coordinator that turns a progression
// trigger (a task completion, an explicit unlock, a plain re-check) into a
// single atomic update of the user's XP, level and achievement records.
package progression

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planhive/planhive/internal/domain/reward"
	"github.com/planhive/planhive/internal/domain/shared"
	"github.com/planhive/planhive/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESSION RUN
// Flow: Acquire User Lock → Load Snapshot + Unlocked Set → Apply Trigger →
//
//	Evaluate Achievements → Fold Rewards → Re-resolve Level → Commit →
//	Publish Events
//
// One run is one transaction: either every effect of the trigger lands
// (XP, level, unlock records, counters) or none of it does.
// ══════════════════════════════════════════════════════════════════════════════

// Trigger identifies what kind of event starts a progression run.
type Trigger string

const (
	// TriggerCompletion is a task transitioning into completed. Carries the
	// task's frozen XP reward.
	TriggerCompletion Trigger = "completion"

	// TriggerExplicitUnlock grants a named achievement directly, regardless
	// of its requirement. Carries the achievement identifier.
	TriggerExplicitUnlock Trigger = "explicit_unlock"

	// TriggerCheckOnly re-evaluates the catalog against the current snapshot
	// without any base reward. Used after counter changes such as planner
	// creation.
	TriggerCheckOnly Trigger = "check_only"
)

// Input describes one progression trigger.
type Input struct {
	// UserID - the user whose progression is updated.
	UserID shared.UserID

	// Trigger - what started the run.
	Trigger Trigger

	// TaskID - the completed task, for TriggerCompletion.
	TaskID shared.TaskID

	// TaskXPReward - the XP frozen on the task at creation time, for
	// TriggerCompletion. Completion pays exactly this amount.
	TaskXPReward shared.XP

	// AchievementID - the achievement to grant, for TriggerExplicitUnlock.
	AchievementID shared.AchievementID
}

// Validate checks that the input names a user and carries the fields its
// trigger requires.
func (i Input) Validate() error {
	if !i.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	switch i.Trigger {
	case TriggerCompletion:
		if !i.TaskID.IsValid() {
			return shared.ErrInvalidTaskID
		}
		if i.TaskXPReward < 0 {
			return shared.ErrNegativeReward
		}
	case TriggerExplicitUnlock:
		if i.AchievementID == "" {
			return shared.ErrAchievementNotFound
		}
	case TriggerCheckOnly:
		// Nothing beyond the user ID.
	default:
		return shared.ErrInvalidTrigger
	}
	return nil
}

// Result is what a committed run produced.
type Result struct {
	// Snapshot - the committed progress state.
	Snapshot user.ProgressSnapshot

	// NewlyUnlocked - achievements unlocked by this run, in unlock order.
	NewlyUnlocked []reward.Definition

	// LeveledUp - true when the run raised the stored level.
	LeveledUp bool

	// XPAwarded - total XP the run added, base reward and bonuses together.
	XPAwarded shared.XP

	// ProcessedAt - when the run committed.
	ProcessedAt time.Time
}

// HasNewAchievements reports whether the run unlocked anything.
func (r *Result) HasNewAchievements() bool {
	return len(r.NewlyUnlocked) > 0
}

// runStep names a phase of the run, for error reporting.
type runStep string

const (
	stepIdle     runStep = "idle"
	stepLoaded   runStep = "loaded"
	stepApplied  runStep = "applied"
	stepCommit   runStep = "committed"
	stepAborted  runStep = "aborted"
	stepComplete runStep = "complete"
)

// runState tracks one run from load to commit.
type runState struct {
	step     runStep
	input    Input
	snapshot user.ProgressSnapshot
	unlocked reward.UnlockedSet
	newly    []reward.Definition
	records  []reward.Unlock
	awarded  shared.XP
	started  time.Time
	settled  bool
	failed   runStep
	err      error
}

// Store is the transactional boundary the coordinator commits through.
// Commit persists the snapshot and the new unlock records as one unit; a
// failed Commit must leave no partial effect behind.
type Store interface {
	// LoadSnapshot returns the user's current progress state.
	LoadSnapshot(ctx context.Context, userID shared.UserID) (user.ProgressSnapshot, error)

	// LoadUnlocked returns the identifiers of achievements the user holds.
	LoadUnlocked(ctx context.Context, userID shared.UserID) ([]shared.AchievementID, error)

	// Commit atomically writes the snapshot and inserts the unlock records.
	Commit(ctx context.Context, snapshot user.ProgressSnapshot, unlocks []reward.Unlock) error
}

// IDGenerator produces identifiers for unlock records.
type IDGenerator interface {
	GenerateID() string
}

// UUIDGenerator generates UUIDv4 identifiers.
type UUIDGenerator struct{}

// GenerateID implements IDGenerator.
func (UUIDGenerator) GenerateID() string {
	return uuid.NewString()
}

// Coordinator runs progression updates. It owns the per-user locks, the
// achievement catalog and the commit boundary.
type Coordinator struct {
	store     Store
	catalog   *reward.Catalog
	evaluator *reward.Evaluator
	eventBus  shared.EventPublisher
	idGen     IDGenerator
	locks     *userLocks
	now       func() time.Time
}

// NewCoordinator creates a coordinator over the given store and catalog.
// eventBus may be nil; events are then dropped.
func NewCoordinator(store Store, catalog *reward.Catalog, eventBus shared.EventPublisher, idGen IDGenerator) *Coordinator {
	if idGen == nil {
		idGen = UUIDGenerator{}
	}
	return &Coordinator{
		store:     store,
		catalog:   catalog,
		evaluator: reward.NewEvaluator(catalog),
		eventBus:  eventBus,
		idGen:     idGen,
		locks:     newUserLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one progression update end to end and returns the committed
// result. Runs for the same user are serialized.
func (c *Coordinator) Run(ctx context.Context, input Input) (*Result, error) {
	state := &runState{
		step:    stepIdle,
		input:   input,
		started: c.now(),
	}

	if err := input.Validate(); err != nil {
		return nil, c.abort(state, err)
	}

	release := c.locks.acquire(input.UserID)
	defer release()

	if err := c.stepLoad(ctx, state); err != nil {
		return nil, c.abort(state, err)
	}
	state.step = stepLoaded

	oldLevel := state.snapshot.Level

	if err := c.stepApplyTrigger(state); err != nil {
		return nil, c.abort(state, err)
	}
	if state.settled {
		state.step = stepComplete
		return &Result{
			Snapshot:    state.snapshot,
			ProcessedAt: c.now(),
		}, nil
	}
	// An explicit unlock grants only the named achievement. The catalog
	// sweep belongs to completion and re-check runs.
	if state.input.Trigger != TriggerExplicitUnlock {
		c.stepEvaluate(state)
	}
	state.step = stepApplied

	if err := c.stepCommit(ctx, state); err != nil {
		return nil, c.abort(state, err)
	}
	state.step = stepCommit

	// Events are observational and go out only after the commit. A publish
	// failure never rolls back a committed run.
	c.publishEvents(state, oldLevel)

	state.step = stepComplete
	return &Result{
		Snapshot:      state.snapshot,
		NewlyUnlocked: state.newly,
		LeveledUp:     state.snapshot.Level > oldLevel,
		XPAwarded:     state.awarded,
		ProcessedAt:   c.now(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RUN STEPS
// ══════════════════════════════════════════════════════════════════════════════

// stepLoad reads the snapshot and the already-unlocked set.
func (c *Coordinator) stepLoad(ctx context.Context, state *runState) error {
	snapshot, err := c.store.LoadSnapshot(ctx, state.input.UserID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	ids, err := c.store.LoadUnlocked(ctx, state.input.UserID)
	if err != nil {
		return fmt.Errorf("load unlocked: %w", err)
	}

	state.snapshot = snapshot
	state.unlocked = reward.NewUnlockedSet(ids)
	return nil
}

// stepApplyTrigger applies the base effect of the trigger to the in-memory
// snapshot. Nothing is persisted here.
func (c *Coordinator) stepApplyTrigger(state *runState) error {
	switch state.input.Trigger {
	case TriggerCompletion:
		state.snapshot.TasksCompleted++

		updated, err := reward.ApplyXP(state.snapshot, state.input.TaskXPReward)
		if err != nil {
			return err
		}
		state.snapshot = updated
		state.awarded += state.input.TaskXPReward

	case TriggerExplicitUnlock:
		def, ok := c.catalog.Get(state.input.AchievementID)
		if !ok {
			return shared.ErrAchievementNotFound
		}
		// Granting an achievement the user already holds is idempotent
		// success. The run ends here; nothing changes, nothing commits.
		if state.unlocked.Contains(def.ID) {
			state.settled = true
			return nil
		}
		c.unlock(state, def)

	case TriggerCheckOnly:
		// The snapshot is evaluated as loaded.
	}

	state.snapshot = reward.RaiseLevel(state.snapshot)
	return nil
}

// stepEvaluate runs one evaluation pass over the catalog and folds the
// rewards of every newly satisfied achievement into the snapshot. The level
// is re-resolved once afterwards, so a task reward that crosses a level
// threshold can still unlock a level achievement within the same run.
func (c *Coordinator) stepEvaluate(state *runState) {
	for _, def := range c.evaluator.Evaluate(state.snapshot, state.unlocked) {
		c.unlock(state, def)
	}
	state.snapshot = reward.RaiseLevel(state.snapshot)
}

// unlock records one achievement grant and pays its reward.
func (c *Coordinator) unlock(state *runState, def reward.Definition) {
	state.unlocked[def.ID] = struct{}{}
	state.newly = append(state.newly, def)
	state.records = append(state.records, reward.NewUnlock(
		c.idGen.GenerateID(),
		state.input.UserID,
		def.ID,
		c.now(),
	))

	// Catalog rewards are validated non-negative at load time.
	updated, err := reward.ApplyXP(state.snapshot, def.XPReward)
	if err != nil {
		return
	}
	state.snapshot = updated
	state.awarded += def.XPReward
}

// stepCommit persists the run atomically.
func (c *Coordinator) stepCommit(ctx context.Context, state *runState) error {
	if err := c.store.Commit(ctx, state.snapshot, state.records); err != nil {
		return fmt.Errorf("commit progression: %w", err)
	}
	return nil
}

// publishEvents emits the domain events for a committed run.
func (c *Coordinator) publishEvents(state *runState, oldLevel shared.Level) {
	if c.eventBus == nil {
		return
	}

	userID := state.input.UserID.String()

	if state.input.Trigger == TriggerCompletion {
		_ = c.eventBus.Publish(shared.NewXPAwardedEvent(
			userID,
			state.input.TaskXPReward.Int(),
			state.snapshot.TotalXP.Int(),
			"task_completion",
			state.input.TaskID.String(),
		))
	}

	for _, def := range state.newly {
		_ = c.eventBus.Publish(shared.NewAchievementUnlockedEvent(
			userID,
			string(def.ID),
			def.XPReward.Int(),
		))
	}

	if state.snapshot.Level > oldLevel {
		_ = c.eventBus.Publish(shared.NewLevelUpEvent(
			userID,
			oldLevel.Int(),
			state.snapshot.Level.Int(),
			state.snapshot.TotalXP.Int(),
		))
	}
}

// abort marks the run failed. The snapshot in memory is discarded; nothing
// reached the store.
func (c *Coordinator) abort(state *runState, err error) error {
	state.failed = state.step
	state.step = stepAborted
	state.err = err
	return &RunError{
		Step:   state.failed,
		UserID: state.input.UserID,
		Cause:  err,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// RunError reports where a progression run failed.
type RunError struct {
	Step   runStep
	UserID shared.UserID
	Cause  error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("progression run for user %s failed after step '%s': %v", e.UserID, e.Step, e.Cause)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Cause
}
