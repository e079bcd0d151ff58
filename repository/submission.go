package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lorekeep/lorekeep/builder"
	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/internal/debug"
	"github.com/lorekeep/lorekeep/schema"
	"github.com/lorekeep/lorekeep/sqlgen"
	"github.com/lorekeep/lorekeep/store"
)

// SubmissionRepository is the aggregate facade for content submissions
// and owns the versioning state machine. Submit, Approve, Reject, and
// NewDraftVersion run inside one transaction each and propagate their
// failures; ordering inside them comes from the transaction scope, not
// from executor queue order.
type SubmissionRepository struct {
	base
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(exec *executor.Executor, dialect sqlgen.Dialect) *SubmissionRepository {
	return &SubmissionRepository{base{exec: exec, dialect: dialect}}
}

func (r *SubmissionRepository) stmt() *builder.Statement {
	return builder.New(r.dialect)
}

// GetByID resolves to the submission, or nil when absent.
func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) *executor.Future[*store.ContentSubmission] {
	st := r.stmt().Select().From(schema.TableSubmissions).Where("id = ?", id)
	return degrade("submission.GetByID", fmt.Sprint(id), executor.QueryOne[store.ContentSubmission](r.exec, ctx, st))
}

// GetBySlug resolves to the current submission carrying the slug.
func (r *SubmissionRepository) GetBySlug(ctx context.Context, slug string) *executor.Future[*store.ContentSubmission] {
	st := r.stmt().Select().From(schema.TableSubmissions).
		Where("slug = ?", slug).
		And("is_current_version = ?", true)
	return degrade("submission.GetBySlug", slug, executor.QueryOne[store.ContentSubmission](r.exec, ctx, st))
}

// GetCurrentForEntry resolves to the entry's single current submission,
// or nil when the entry has none.
func (r *SubmissionRepository) GetCurrentForEntry(ctx context.Context, entryID int64) *executor.Future[*store.ContentSubmission] {
	st := r.stmt().Select().From(schema.TableSubmissions).
		Where("entry_id = ?", entryID).
		And("is_current_version = ?", true)
	return degrade("submission.GetCurrentForEntry", fmt.Sprint(entryID), executor.QueryOne[store.ContentSubmission](r.exec, ctx, st))
}

// ListVersionsForEntry resolves to every revision of an entry, newest
// version first.
func (r *SubmissionRepository) ListVersionsForEntry(ctx context.Context, entryID int64) *executor.Future[[]store.ContentSubmission] {
	st := r.stmt().Select().From(schema.TableSubmissions).
		Where("entry_id = ?", entryID).
		OrderBy("version", "DESC")
	return degrade("submission.ListVersionsForEntry", fmt.Sprint(entryID), executor.QueryMany[store.ContentSubmission](r.exec, ctx, st))
}

// ListPending resolves to all submissions awaiting a decision, oldest
// first so reviewers see the queue in arrival order.
func (r *SubmissionRepository) ListPending(ctx context.Context) *executor.Future[[]store.ContentSubmission] {
	st := r.stmt().Select().From(schema.TableSubmissions).
		Where("approval_status = ?", string(store.ApprovalPending)).
		OrderBy("submitted_at", "ASC")
	return degrade("submission.ListPending", "", executor.QueryMany[store.ContentSubmission](r.exec, ctx, st))
}

// CountForEntry resolves to the number of revisions an entry has.
func (r *SubmissionRepository) CountForEntry(ctx context.Context, entryID int64) *executor.Future[int64] {
	st := r.stmt().Select("COUNT(*)").From(schema.TableSubmissions).Where("entry_id = ?", entryID)
	return degrade("submission.CountForEntry", fmt.Sprint(entryID), executor.QueryScalar[int64](r.exec, ctx, st))
}

// RecordView bumps the view counter in place and stamps last-viewed-at.
func (r *SubmissionRepository) RecordView(ctx context.Context, id int64) *executor.Future[bool] {
	// Increments in place so concurrent views never lose counts; the
	// builder's Set grammar only assigns values.
	sqlText := fmt.Sprintf("UPDATE %s SET %s = %s + 1, %s = ? WHERE %s = ?",
		r.dialect.Quote(schema.TableSubmissions),
		r.dialect.Quote("view_count"), r.dialect.Quote("view_count"),
		r.dialect.Quote("last_viewed_at"), r.dialect.Quote("id"))
	inner := r.exec.ExecRaw(ctx, sqlText, time.Now().UTC(), id)
	return degrade("submission.RecordView", fmt.Sprint(id), executor.Go(func() (bool, error) {
		affected, err := inner.Get()
		return affected > 0, err
	}))
}

// versionState is the tiny aggregate Submit reads before inserting.
type versionState struct {
	MaxVersion   int64 `db:"max_version"`
	CurrentCount int64 `db:"current_count"`
}

// Submit creates the next revision for an entry: version is the highest
// existing version plus one, and the revision becomes current only when
// the entry has no current submission yet (first submission
// auto-activates, still PENDING). Resolves to the stored submission.
// Failures propagate.
func (r *SubmissionRepository) Submit(ctx context.Context, submission *store.ContentSubmission) *executor.Future[*store.ContentSubmission] {
	return executor.InTransaction(r.exec, ctx, func(tx *sql.Tx) (*store.ContentSubmission, error) {
		state, err := r.loadVersionState(ctx, tx, submission.EntryID)
		if err != nil {
			return nil, err
		}
		stored := *submission
		stored.Version = int(state.MaxVersion) + 1
		stored.IsCurrentVersion = state.CurrentCount == 0
		stored.ApprovalStatus = store.ApprovalPending
		stored.Status = store.StatusPending
		if stored.Visibility == "" {
			stored.Visibility = store.VisibilityPublic
		}
		if stored.SubmittedAt.IsZero() {
			stored.SubmittedAt = time.Now().UTC()
		}

		id, err := executor.TxInsert(ctx, tx, r.insertStatement(&stored))
		if err != nil {
			return nil, err
		}
		stored.ID = id
		debug.Debug("submission created",
			"entry", stored.EntryID, "version", stored.Version, "current", stored.IsCurrentVersion)
		return &stored, nil
	})
}

// NewDraftVersion demotes the entry's current submission and inserts a
// fresh PENDING, non-current revision at the next version. The entry may
// end with zero current submissions. Failures propagate.
func (r *SubmissionRepository) NewDraftVersion(ctx context.Context, submission *store.ContentSubmission) *executor.Future[*store.ContentSubmission] {
	return executor.InTransaction(r.exec, ctx, func(tx *sql.Tx) (*store.ContentSubmission, error) {
		state, err := r.loadVersionState(ctx, tx, submission.EntryID)
		if err != nil {
			return nil, err
		}
		if _, err := executor.TxExec(ctx, tx, r.demoteStatement(submission.EntryID, 0)); err != nil {
			return nil, err
		}

		stored := *submission
		stored.Version = int(state.MaxVersion) + 1
		stored.IsCurrentVersion = false
		stored.ApprovalStatus = store.ApprovalPending
		stored.Status = store.StatusPending
		if stored.Visibility == "" {
			stored.Visibility = store.VisibilityPublic
		}
		if stored.SubmittedAt.IsZero() {
			stored.SubmittedAt = time.Now().UTC()
		}

		id, err := executor.TxInsert(ctx, tx, r.insertStatement(&stored))
		if err != nil {
			return nil, err
		}
		stored.ID = id
		return &stored, nil
	})
}

// Approve promotes one submission to the entry's current version inside
// a single transaction: load, demote every other current sibling, then
// promote the target. Approving an already-approved submission is a
// successful no-op that touches nothing. Failures propagate so callers
// can retry or alert.
func (r *SubmissionRepository) Approve(ctx context.Context, entryID, submissionID, approverID int64) *executor.Future[bool] {
	return executor.InTransaction(r.exec, ctx, func(tx *sql.Tx) (bool, error) {
		load := r.stmt().Select().From(schema.TableSubmissions).
			Where("id = ?", submissionID).
			And("entry_id = ?", entryID)
		target, err := executor.TxQueryOne[store.ContentSubmission](ctx, tx, load)
		if err != nil {
			return false, err
		}
		if target == nil {
			debug.Error("approve target not found", "entry", entryID, "submission", submissionID)
			return false, fmt.Errorf("repository: submission %d not found for entry %d", submissionID, entryID)
		}
		if target.ApprovalStatus == store.ApprovalApproved {
			return true, nil
		}

		if _, err := executor.TxExec(ctx, tx, r.demoteStatement(entryID, submissionID)); err != nil {
			return false, err
		}

		now := time.Now().UTC()
		promote := r.stmt().Update(schema.TableSubmissions).
			Set("approval_status", string(store.ApprovalApproved)).
			Set("status", string(store.StatusActive)).
			Set("is_current_version", true).
			Set("approved_by", approverID).
			Set("approved_at", now).
			Where("id = ?", submissionID)
		affected, err := executor.TxExec(ctx, tx, promote)
		if err != nil {
			return false, err
		}
		if affected == 0 {
			debug.Error("promote affected no rows", "entry", entryID, "submission", submissionID)
			return false, fmt.Errorf("repository: promote of submission %d affected no rows", submissionID)
		}
		return true, nil
	})
}

// Reject marks a submission rejected and archived; it is never current
// afterwards, and its entry may be left with no current submission.
// Failures propagate.
func (r *SubmissionRepository) Reject(ctx context.Context, submissionID, approverID int64) *executor.Future[bool] {
	return executor.InTransaction(r.exec, ctx, func(tx *sql.Tx) (bool, error) {
		now := time.Now().UTC()
		st := r.stmt().Update(schema.TableSubmissions).
			Set("approval_status", string(store.ApprovalRejected)).
			Set("status", string(store.StatusArchived)).
			Set("is_current_version", false).
			Set("approved_by", approverID).
			Set("approved_at", now).
			Where("id = ?", submissionID)
		affected, err := executor.TxExec(ctx, tx, st)
		if err != nil {
			return false, err
		}
		if affected == 0 {
			debug.Error("reject affected no rows", "submission", submissionID)
			return false, fmt.Errorf("repository: reject of submission %d affected no rows", submissionID)
		}
		return true, nil
	})
}

// DeleteByID removes one revision. Resolves to whether a row was
// deleted.
func (r *SubmissionRepository) DeleteByID(ctx context.Context, id int64) *executor.Future[bool] {
	st := r.stmt().DeleteFrom(schema.TableSubmissions).Where("id = ?", id)
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("submission.DeleteByID", fmt.Sprint(id), executor.Go(func() (bool, error) {
		affected, err := inner.Get()
		return affected > 0, err
	}))
}

func (r *SubmissionRepository) loadVersionState(ctx context.Context, tx *sql.Tx, entryID int64) (*versionState, error) {
	st := r.stmt().
		Select("COALESCE(MAX(version), 0) AS max_version",
			"COALESCE(SUM(is_current_version), 0) AS current_count").
		From(schema.TableSubmissions).
		Where("entry_id = ?", entryID)
	state, err := executor.TxQueryOne[versionState](ctx, tx, st)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &versionState{}, nil
	}
	return state, nil
}

// demoteStatement clears the current flag on every current submission of
// the entry except keepID (0 keeps nothing). Demoted rows move to
// ARCHIVED.
func (r *SubmissionRepository) demoteStatement(entryID, keepID int64) *builder.Statement {
	return r.stmt().Update(schema.TableSubmissions).
		Set("is_current_version", false).
		Set("status", string(store.StatusArchived)).
		Where("entry_id = ?", entryID).
		And("is_current_version = ?", true).
		And("id != ?", keepID)
}

func (r *SubmissionRepository) insertStatement(s *store.ContentSubmission) *builder.Statement {
	return r.stmt().InsertInto(schema.TableSubmissions).
		Columns("entry_id", "slug", "visibility", "status",
			"submitted_by", "submitted_at", "approval_status",
			"version", "is_current_version", "view_count", "body").
		Values(s.EntryID, s.Slug, string(s.Visibility), string(s.Status),
			s.SubmittedBy, s.SubmittedAt, string(s.ApprovalStatus),
			s.Version, s.IsCurrentVersion, s.ViewCount, s.Body)
}
