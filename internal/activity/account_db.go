package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/evald/controlplane/internal/metrics"
	"github.com/evald/controlplane/internal/model"
	"github.com/evald/controlplane/internal/platform"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// AccountDB contains the data-mutation activities for onboarding. All side
// effects are confined to the relational store; the database's own uniqueness
// constraints are the only cross-execution conflict detection.
type AccountDB struct {
	db          DB
	ownerRoleID string
}

// NewAccountDB creates a new AccountDB activity struct. ownerRoleID is the
// role granted to the onboarding user's membership.
func NewAccountDB(db DB, ownerRoleID string) *AccountDB {
	return &AccountDB{db: db, ownerRoleID: ownerRoleID}
}

// EnsureUserAccountResult is the outcome of the transactional onboarding step.
type EnsureUserAccountResult struct {
	User    model.User    `json:"user"`
	Account model.Account `json:"account"`
	// Created is false when the kc_sub already existed and the existing
	// user/account pair was returned instead of inserting rows.
	Created bool `json:"created"`
}

// EnsureUserAccount creates the user, account, and owner membership in one
// transaction. A unique violation on users.kc_sub means the subject was
// already onboarded (possibly by an earlier attempt of this same workflow
// that crashed after commit); the existing rows are loaded and returned so
// the workflow resumes from realm provisioning instead of failing.
func (a *AccountDB) EnsureUserAccount(ctx context.Context, input model.OnboardingInput) (*EnsureUserAccountResult, error) {
	result, err := a.createUserAccount(ctx, input)
	if err == nil {
		return result, nil
	}
	if !isUniqueViolation(err) {
		return nil, err
	}

	metrics.OnboardingConflicts.Inc()
	return a.loadExisting(ctx, input.KCSubject)
}

func (a *AccountDB) createUserAccount(ctx context.Context, input model.OnboardingInput) (*EnsureUserAccountResult, error) {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin onboarding tx: %w", err)
	}
	defer tx.Rollback(ctx)

	user := model.User{
		ID:    platform.NewID(),
		KCSub: input.KCSubject,
		Email: input.Email,
	}
	if input.FullName != "" {
		user.FullName = &input.FullName
	}
	if input.AvatarURL != "" {
		user.AvatarURL = &input.AvatarURL
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, kc_sub, email, full_name, avatar_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		user.ID, user.KCSub, user.Email, user.FullName, user.AvatarURL,
	).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	account := model.Account{
		ID:          platform.NewID(),
		UID:         platform.NewUID("a"),
		Name:        input.AccountName,
		RealmStatus: model.RealmStatusPending,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO accounts (id, uid, name, realm_status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		account.ID, account.UID, account.Name, account.RealmStatus,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO account_members (id, user_id, account_id, role_id)
		 VALUES ($1, $2, $3, $4)`,
		platform.NewID(), user.ID, account.ID, a.ownerRoleID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit onboarding tx: %w", err)
	}

	return &EnsureUserAccountResult{User: user, Account: account, Created: true}, nil
}

// loadExisting resolves the user by kc_sub and their owned account. The
// account's current realm_status is returned untouched so the workflow can
// tell how far a previous attempt got.
func (a *AccountDB) loadExisting(ctx context.Context, kcSub string) (*EnsureUserAccountResult, error) {
	var result EnsureUserAccountResult
	err := a.db.QueryRow(ctx,
		`SELECT u.id, u.kc_sub, u.email, u.full_name, u.avatar_url, u.created_at,
		        a.id, a.uid, a.name, a.realm_status, a.created_at, a.updated_at
		 FROM users u
		 JOIN account_members m ON m.user_id = u.id
		 JOIN accounts a ON a.id = m.account_id
		 WHERE u.kc_sub = $1
		 ORDER BY a.created_at
		 LIMIT 1`, kcSub,
	).Scan(
		&result.User.ID, &result.User.KCSub, &result.User.Email,
		&result.User.FullName, &result.User.AvatarURL, &result.User.CreatedAt,
		&result.Account.ID, &result.Account.UID, &result.Account.Name,
		&result.Account.RealmStatus, &result.Account.CreatedAt, &result.Account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("load existing onboarding for %s: %w", kcSub, err)
	}
	return &result, nil
}

// GetAccountByUID retrieves an account by its UID.
func (a *AccountDB) GetAccountByUID(ctx context.Context, uid string) (*model.Account, error) {
	var acc model.Account
	err := a.db.QueryRow(ctx,
		`SELECT id, uid, name, realm_status, created_at, updated_at
		 FROM accounts WHERE uid = $1`, uid,
	).Scan(&acc.ID, &acc.UID, &acc.Name, &acc.RealmStatus, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get account by uid: %w", err)
	}
	return &acc, nil
}

// GetAccountOwner retrieves the owner user of an account, used when resuming
// onboarding for a pending account.
func (a *AccountDB) GetAccountOwner(ctx context.Context, accountUID string) (*model.User, error) {
	var u model.User
	err := a.db.QueryRow(ctx,
		`SELECT u.id, u.kc_sub, u.email, u.full_name, u.avatar_url, u.created_at
		 FROM users u
		 JOIN account_members m ON m.user_id = u.id
		 JOIN accounts a ON a.id = m.account_id
		 WHERE a.uid = $1 AND m.role_id = $2
		 ORDER BY m.created_at
		 LIMIT 1`, accountUID, a.ownerRoleID,
	).Scan(&u.ID, &u.KCSub, &u.Email, &u.FullName, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get account owner: %w", err)
	}
	return &u, nil
}

// SetAccountRealmStatusParams holds the parameters for SetAccountRealmStatus.
type SetAccountRealmStatusParams struct {
	AccountUID string `json:"account_uid"`
	Status     string `json:"status"`
}

// SetAccountRealmStatus sets the realm_status of an account by UID.
func (a *AccountDB) SetAccountRealmStatus(ctx context.Context, params SetAccountRealmStatusParams) error {
	tag, err := a.db.Exec(ctx,
		`UPDATE accounts SET realm_status = $1, updated_at = now() WHERE uid = $2`,
		params.Status, params.AccountUID)
	if err != nil {
		return fmt.Errorf("set realm status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set realm status: account %s not found", params.AccountUID)
	}
	return nil
}

// FinalizeAccount marks the account's realm as finalized and returns the
// updated row. It is the durable marker that the database and the identity
// system agree.
func (a *AccountDB) FinalizeAccount(ctx context.Context, accountUID string) (*model.Account, error) {
	var acc model.Account
	err := a.db.QueryRow(ctx,
		`UPDATE accounts SET realm_status = $1, updated_at = now()
		 WHERE uid = $2
		 RETURNING id, uid, name, realm_status, created_at, updated_at`,
		model.RealmStatusFinalized, accountUID,
	).Scan(&acc.ID, &acc.UID, &acc.Name, &acc.RealmStatus, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("finalize account: %w", err)
	}
	return &acc, nil
}

// ListPendingAccounts returns accounts whose realm provisioning has been
// pending for longer than maxAgeHours. Consumed by the reconciliation sweep.
func (a *AccountDB) ListPendingAccounts(ctx context.Context, maxAgeHours int) ([]model.Account, error) {
	rows, err := a.db.Query(ctx,
		`SELECT id, uid, name, realm_status, created_at, updated_at
		 FROM accounts
		 WHERE realm_status = $1 AND updated_at < now() - make_interval(hours => $2)
		 ORDER BY updated_at`,
		model.RealmStatusPending, maxAgeHours)
	if err != nil {
		return nil, fmt.Errorf("list pending accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var acc model.Account
		if err := rows.Scan(&acc.ID, &acc.UID, &acc.Name, &acc.RealmStatus, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}
