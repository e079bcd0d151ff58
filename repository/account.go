package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lorekeep/lorekeep/builder"
	"github.com/lorekeep/lorekeep/executor"
	"github.com/lorekeep/lorekeep/schema"
	"github.com/lorekeep/lorekeep/sqlgen"
	"github.com/lorekeep/lorekeep/store"
)

// AccountRepository is the aggregate facade for player accounts and
// their rename history.
type AccountRepository struct {
	base
}

// NewAccountRepository constructs the repository.
func NewAccountRepository(exec *executor.Executor, dialect sqlgen.Dialect) *AccountRepository {
	return &AccountRepository{base{exec: exec, dialect: dialect}}
}

func (r *AccountRepository) stmt() *builder.Statement {
	return builder.New(r.dialect)
}

// GetByID resolves to the account, or nil when absent.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) *executor.Future[*store.Account] {
	st := r.stmt().Select().From(schema.TableAccounts).Where("id = ?", id)
	return degrade("account.GetByID", fmt.Sprint(id), executor.QueryOne[store.Account](r.exec, ctx, st))
}

// GetByUUID looks an account up by its player uuid, the natural key.
func (r *AccountRepository) GetByUUID(ctx context.Context, playerUUID string) *executor.Future[*store.Account] {
	st := r.stmt().Select().From(schema.TableAccounts).Where("player_uuid = ?", playerUUID)
	return degrade("account.GetByUUID", playerUUID, executor.QueryOne[store.Account](r.exec, ctx, st))
}

// GetByName looks an account up by its current display name.
func (r *AccountRepository) GetByName(ctx context.Context, name string) *executor.Future[*store.Account] {
	st := r.stmt().Select().From(schema.TableAccounts).Where("name = ?", name)
	return degrade("account.GetByName", name, executor.QueryOne[store.Account](r.exec, ctx, st))
}

// ListAll resolves to every account, newest first.
func (r *AccountRepository) ListAll(ctx context.Context) *executor.Future[[]store.Account] {
	st := r.stmt().Select().From(schema.TableAccounts).OrderBy("created_at", "DESC")
	return degrade("account.ListAll", "", executor.QueryMany[store.Account](r.exec, ctx, st))
}

// Save inserts or upserts the account. Resolves to its id, or 0 on a
// dropped write.
func (r *AccountRepository) Save(ctx context.Context, account *store.Account) *executor.Future[int64] {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.LastSeenAt.IsZero() {
		account.LastSeenAt = now
	}
	if account.ID == 0 {
		st := r.stmt().InsertInto(schema.TableAccounts).
			Columns("player_uuid", "name", "last_seen_at", "created_at").
			Values(account.PlayerUUID, account.Name, account.LastSeenAt, account.CreatedAt)
		return degrade("account.Save", account.PlayerUUID, r.exec.ExecInsert(ctx, st))
	}

	id := account.ID
	st := r.stmt().InsertInto(schema.TableAccounts).
		Columns("id", "player_uuid", "name", "last_seen_at", "created_at").
		Values(account.ID, account.PlayerUUID, account.Name, account.LastSeenAt, account.CreatedAt).
		OnConflictUpdate("name", "last_seen_at")
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("account.Save", account.PlayerUUID, executor.Go(func() (int64, error) {
		if _, err := inner.Get(); err != nil {
			return 0, err
		}
		return id, nil
	}))
}

// Rename changes the account's display name and appends a rename record
// in the same transaction. A rename to the current name is a no-op.
// Failures propagate; the history must never drift from the account row.
func (r *AccountRepository) Rename(ctx context.Context, accountID int64, newName string) *executor.Future[bool] {
	return executor.InTransaction(r.exec, ctx, func(tx *sql.Tx) (bool, error) {
		load := r.stmt().Select().From(schema.TableAccounts).Where("id = ?", accountID)
		account, err := executor.TxQueryOne[store.Account](ctx, tx, load)
		if err != nil {
			return false, err
		}
		if account == nil {
			return false, fmt.Errorf("repository: account %d not found", accountID)
		}
		if account.Name == newName {
			return true, nil
		}

		update := r.stmt().Update(schema.TableAccounts).
			Set("name", newName).
			Where("id = ?", accountID)
		if _, err := executor.TxExec(ctx, tx, update); err != nil {
			return false, err
		}

		record := r.stmt().InsertInto(schema.TableNameChanges).
			Columns("account_id", "old_name", "new_name", "changed_at").
			Values(accountID, account.Name, newName, time.Now().UTC())
		if _, err := executor.TxInsert(ctx, tx, record); err != nil {
			return false, err
		}
		return true, nil
	})
}

// ListNameChanges resolves to the account's rename history, newest
// first.
func (r *AccountRepository) ListNameChanges(ctx context.Context, accountID int64) *executor.Future[[]store.NameChange] {
	st := r.stmt().Select().From(schema.TableNameChanges).
		Where("account_id = ?", accountID).
		OrderBy("changed_at", "DESC")
	return degrade("account.ListNameChanges", fmt.Sprint(accountID), executor.QueryMany[store.NameChange](r.exec, ctx, st))
}

// TouchLastSeen stamps the account's last-seen time.
func (r *AccountRepository) TouchLastSeen(ctx context.Context, accountID int64) *executor.Future[bool] {
	st := r.stmt().Update(schema.TableAccounts).
		Set("last_seen_at", time.Now().UTC()).
		Where("id = ?", accountID)
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("account.TouchLastSeen", fmt.Sprint(accountID), executor.Go(func() (bool, error) {
		affected, err := inner.Get()
		return affected > 0, err
	}))
}

// DeleteByID removes the account. Resolves to whether a row was
// deleted.
func (r *AccountRepository) DeleteByID(ctx context.Context, id int64) *executor.Future[bool] {
	st := r.stmt().DeleteFrom(schema.TableAccounts).Where("id = ?", id)
	inner := r.exec.ExecUpdate(ctx, st)
	return degrade("account.DeleteByID", fmt.Sprint(id), executor.Go(func() (bool, error) {
		affected, err := inner.Get()
		return affected > 0, err
	}))
}
