package registry

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// BunRegistry implements Registry on the Guacamole schema using bun.
type BunRegistry struct {
	db *bun.DB
}

// NewBunRegistry wraps an open bun database.
func NewBunRegistry(db *bun.DB) *BunRegistry {
	return &BunRegistry{db: db}
}

// Open connects to the registry database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*BunRegistry, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch driver {
	case DriverMySQL:
		sqldb, err = sql.Open("mysql", dsn)
		if err == nil {
			db = bun.NewDB(sqldb, mysqldialect.New())
		}
	case DriverSQLite:
		sqldb, err = sql.Open(sqliteshim.DriverName(), dsn)
		if err == nil {
			db = bun.NewDB(sqldb, sqlitedialect.New())
		}
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported registry driver %q", driver), nil)
	}
	if err != nil {
		return nil, errors.AdapterFailed("open registry", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.AdapterFailed("connect to registry", err)
	}

	logging.Debug("registry connected", "driver", driver)
	return NewBunRegistry(db), nil
}

// DB returns the underlying database handle.
func (r *BunRegistry) DB() *bun.DB {
	return r.db
}

// Close closes the database.
func (r *BunRegistry) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the Guacamole tables lab-ctl touches if they are
// missing. Production databases are initialised by Guacamole's own scripts.
func (r *BunRegistry) EnsureSchema(ctx context.Context) error {
	for _, model := range schemaModels {
		if _, err := r.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.AdapterFailed("create registry schema", err)
		}
	}
	return nil
}

// RegisterConnection creates a VNC connection routed through guacd, with
// its hostname, port and password parameters, in one transaction. A
// connection that already exists by name is returned unchanged.
func (r *BunRegistry) RegisterConnection(ctx context.Context, conn VNCConnection) (int64, bool, error) {
	if err := conn.validate(); err != nil {
		return 0, false, err
	}

	var (
		id      int64
		created bool
	)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		id, err = findConnection(ctx, tx, conn.Name)
		if err == nil {
			return nil
		}
		if !errors.IsNotFound(err) {
			return err
		}

		rec := &connectionRecord{
			ConnectionName:        conn.Name,
			Protocol:              ProtocolVNC,
			ProxyPort:             GuacdPort,
			ProxyHostname:         GuacdHostname,
			ProxyEncryptionMethod: "NONE",
			MaxConnections:        1,
			MaxConnectionsPerUser: 1,
		}
		if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
			return err
		}
		if id, err = findConnection(ctx, tx, conn.Name); err != nil {
			return err
		}

		params := conn.Parameters()
		rows := make([]connectionParameterRecord, 0, len(params))
		for _, name := range []string{"hostname", "port", "password"} {
			if value, ok := params[name]; ok {
				rows = append(rows, connectionParameterRecord{ConnectionID: id, ParameterName: name, ParameterValue: value})
			}
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return 0, false, mapError("register connection "+conn.Name, err)
	}

	logging.Debug("connection registered", "name", conn.Name, "id", id, "created", created)
	return id, created, nil
}

// ConnectionParameters returns the parameters stored for a connection.
func (r *BunRegistry) ConnectionParameters(ctx context.Context, connectionID int64) (map[string]string, error) {
	var rows []connectionParameterRecord
	err := r.db.NewSelect().
		Model(&rows).
		Where("connection_id = ?", connectionID).
		Scan(ctx)
	if err != nil {
		return nil, mapError("read connection parameters", err)
	}
	params := make(map[string]string, len(rows))
	for _, row := range rows {
		params[row.ParameterName] = row.ParameterValue
	}
	return params, nil
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var labErr *errors.LabError
	if stderrors.As(err, &labErr) {
		return err
	}
	return errors.AdapterFailed(op, err)
}

func findEntity(ctx context.Context, db bun.IDB, username string) (int64, error) {
	var rec entityRecord
	err := db.NewSelect().
		Model(&rec).
		Column("entity_id").
		Where("name = ?", username).
		Where("type = ?", entityTypeUser).
		Limit(1).
		Scan(ctx)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, errors.NotFound("account", username)
	}
	if err != nil {
		return 0, mapError("find account "+username, err)
	}
	return rec.EntityID, nil
}

// FindAccountEntity returns the entity id of a user account.
func (r *BunRegistry) FindAccountEntity(ctx context.Context, username string) (int64, error) {
	return findEntity(ctx, r.db, username)
}

// FindConnectionID returns the id of a connection by exact name. When the
// name is registered more than once the oldest row wins.
func (r *BunRegistry) FindConnectionID(ctx context.Context, name string) (int64, error) {
	return findConnection(ctx, r.db, name)
}

func findConnection(ctx context.Context, db bun.IDB, name string) (int64, error) {
	var rec connectionRecord
	err := db.NewSelect().
		Model(&rec).
		Column("connection_id").
		Where("connection_name = ?", name).
		OrderExpr("connection_id ASC").
		Limit(1).
		Scan(ctx)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, errors.NotFound("connection", name)
	}
	if err != nil {
		return 0, mapError("find connection "+name, err)
	}
	return rec.ConnectionID, nil
}

// ListConnections returns every registered connection.
func (r *BunRegistry) ListConnections(ctx context.Context) ([]Connection, error) {
	var recs []connectionRecord
	err := r.db.NewSelect().
		Model(&recs).
		OrderExpr("connection_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError("list connections", err)
	}
	conns := make([]Connection, len(recs))
	for i, rec := range recs {
		conns[i] = rec.toConnection()
	}
	return conns, nil
}

// ListAssignments returns the connections an entity holds READ on.
func (r *BunRegistry) ListAssignments(ctx context.Context, entityID int64) ([]Connection, error) {
	var recs []connectionRecord
	err := r.db.NewSelect().
		Model(&recs).
		Join("JOIN guacamole_connection_permission AS cp ON cp.connection_id = c.connection_id").
		Where("cp.entity_id = ?", entityID).
		Where("cp.permission = ?", PermissionRead).
		OrderExpr("c.connection_name ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError("list assignments", err)
	}
	conns := make([]Connection, len(recs))
	for i, rec := range recs {
		conns[i] = rec.toConnection()
	}
	return conns, nil
}

// Grant gives an entity READ on a connection, doing nothing when the
// grant already exists.
func (r *BunRegistry) Grant(ctx context.Context, entityID, connectionID int64) (bool, error) {
	created := false
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*connectionPermissionRecord)(nil)).
			Where("entity_id = ?", entityID).
			Where("connection_id = ?", connectionID).
			Where("permission = ?", PermissionRead).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		rec := &connectionPermissionRecord{
			EntityID:     entityID,
			ConnectionID: connectionID,
			Permission:   PermissionRead,
		}
		if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, mapError("grant connection", err)
	}
	return created, nil
}

func rowsAffected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// RevokeAll removes every connection grant an entity holds.
func (r *BunRegistry) RevokeAll(ctx context.Context, entityID int64) (int, error) {
	res, err := r.db.NewDelete().
		Model((*connectionPermissionRecord)(nil)).
		Where("entity_id = ?", entityID).
		Exec(ctx)
	if err != nil {
		return 0, mapError("revoke grants", err)
	}
	return rowsAffected(res), nil
}

// RevokeConnection removes every grant on a connection.
func (r *BunRegistry) RevokeConnection(ctx context.Context, connectionID int64) (int, error) {
	res, err := r.db.NewDelete().
		Model((*connectionPermissionRecord)(nil)).
		Where("connection_id = ?", connectionID).
		Exec(ctx)
	if err != nil {
		return 0, mapError("revoke connection grants", err)
	}
	return rowsAffected(res), nil
}

// CreateAccount creates the entity and user rows for a new account.
func (r *BunRegistry) CreateAccount(ctx context.Context, username, secret string) (int64, error) {
	if username == "" {
		return 0, errors.Validation("username is required")
	}
	if secret == "" {
		return 0, errors.Validation("password is required for %s", username)
	}

	hash, salt, err := hashPassword(secret)
	if err != nil {
		return 0, errors.AdapterFailed("hash password", err)
	}

	var entityID int64
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*entityRecord)(nil)).
			Where("name = ?", username).
			Where("type = ?", entityTypeUser).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return errors.AlreadyExists("account", username)
		}

		entity := &entityRecord{Name: username, Type: entityTypeUser}
		if _, err := tx.NewInsert().Model(entity).Exec(ctx); err != nil {
			return err
		}
		// Re-read the id: not every dialect reports autoincrement keys.
		id, err := findEntity(ctx, tx, username)
		if err != nil {
			return err
		}

		user := &userRecord{
			EntityID:     id,
			PasswordHash: hash,
			PasswordSalt: salt,
			PasswordDate: time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return err
		}

		entityID = id
		return nil
	})
	if err != nil {
		return 0, mapError("create account "+username, err)
	}

	logging.Debug("account created", "username", username, "entity_id", entityID)
	return entityID, nil
}

// DeleteAccount removes an account and every permission that mentions it
// in one transaction.
func (r *BunRegistry) DeleteAccount(ctx context.Context, username string) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		entityID, err := findEntity(ctx, tx, username)
		if err != nil {
			return err
		}

		var user userRecord
		err = tx.NewSelect().Model(&user).Column("user_id").Where("entity_id = ?", entityID).Limit(1).Scan(ctx)
		hasUser := err == nil
		if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
			return err
		}

		if hasUser {
			if _, err := tx.NewDelete().Model((*userPermissionRecord)(nil)).
				Where("affected_user_id = ?", user.UserID).Exec(ctx); err != nil {
				return err
			}
		}
		deletes := []any{
			(*userPermissionRecord)(nil),
			(*connectionPermissionRecord)(nil),
			(*systemPermissionRecord)(nil),
			(*sharingProfilePermissionRecord)(nil),
			(*userRecord)(nil),
			(*entityRecord)(nil),
		}
		for _, model := range deletes {
			if _, err := tx.NewDelete().Model(model).Where("entity_id = ?", entityID).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapError("delete account "+username, err)
	}

	logging.Debug("account deleted", "username", username)
	return nil
}

// ResetPassword replaces an account's credential with a freshly salted hash.
func (r *BunRegistry) ResetPassword(ctx context.Context, username, secret string) error {
	if secret == "" {
		return errors.Validation("password is required for %s", username)
	}
	entityID, err := r.FindAccountEntity(ctx, username)
	if err != nil {
		return err
	}

	hash, salt, err := hashPassword(secret)
	if err != nil {
		return errors.AdapterFailed("hash password", err)
	}

	_, err = r.db.NewUpdate().
		Model((*userRecord)(nil)).
		Set("password_hash = ?", hash).
		Set("password_salt = ?", salt).
		Set("password_date = ?", time.Now().UTC()).
		Where("entity_id = ?", entityID).
		Exec(ctx)
	return mapError("reset password for "+username, err)
}

// SetElevated grants or revokes the ADMINISTER system permission.
func (r *BunRegistry) SetElevated(ctx context.Context, username string, elevated bool) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		entityID, err := findEntity(ctx, tx, username)
		if err != nil {
			return err
		}

		if !elevated {
			_, err := tx.NewDelete().
				Model((*systemPermissionRecord)(nil)).
				Where("entity_id = ?", entityID).
				Where("permission = ?", PermissionAdminister).
				Exec(ctx)
			return err
		}

		exists, err := tx.NewSelect().
			Model((*systemPermissionRecord)(nil)).
			Where("entity_id = ?", entityID).
			Where("permission = ?", PermissionAdminister).
			Exists(ctx)
		if err != nil || exists {
			return err
		}
		_, err = tx.NewInsert().
			Model(&systemPermissionRecord{EntityID: entityID, Permission: PermissionAdminister}).
			Exec(ctx)
		return err
	})
	return mapError("set privilege for "+username, err)
}

type accountRow struct {
	EntityID int64  `bun:"entity_id"`
	Name     string `bun:"name"`
}

type grantRow struct {
	EntityID       int64  `bun:"entity_id"`
	ConnectionID   int64  `bun:"connection_id"`
	ConnectionName string `bun:"connection_name"`
}

// ListAccounts returns every user account with its privilege flag and held
// connections, using three queries regardless of the number of accounts.
func (r *BunRegistry) ListAccounts(ctx context.Context) ([]Account, error) {
	var rows []accountRow
	err := r.db.NewSelect().
		TableExpr("guacamole_entity AS e").
		Join("JOIN guacamole_user AS u ON u.entity_id = e.entity_id").
		ColumnExpr("e.entity_id, e.name").
		Where("e.type = ?", entityTypeUser).
		OrderExpr("e.name ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, mapError("list accounts", err)
	}

	var admins []int64
	err = r.db.NewSelect().
		Model((*systemPermissionRecord)(nil)).
		Column("entity_id").
		Where("permission = ?", PermissionAdminister).
		Scan(ctx, &admins)
	if err != nil {
		return nil, mapError("list elevated accounts", err)
	}
	elevated := make(map[int64]bool, len(admins))
	for _, id := range admins {
		elevated[id] = true
	}

	var grants []grantRow
	err = r.db.NewSelect().
		TableExpr("guacamole_connection_permission AS cp").
		Join("JOIN guacamole_connection AS c ON c.connection_id = cp.connection_id").
		ColumnExpr("cp.entity_id, c.connection_id, c.connection_name").
		Where("cp.permission = ?", PermissionRead).
		OrderExpr("c.connection_name ASC").
		Scan(ctx, &grants)
	if err != nil {
		return nil, mapError("list grants", err)
	}
	held := make(map[int64][]Connection)
	for _, g := range grants {
		held[g.EntityID] = append(held[g.EntityID], Connection{ID: g.ConnectionID, Name: g.ConnectionName})
	}

	accounts := make([]Account, len(rows))
	for i, row := range rows {
		conns := held[row.EntityID]
		if conns == nil {
			conns = []Connection{}
		}
		accounts[i] = Account{
			EntityID:    row.EntityID,
			Username:    row.Name,
			Elevated:    elevated[row.EntityID],
			Connections: conns,
		}
	}
	return accounts, nil
}

// CountAccounts returns the number of user accounts.
func (r *BunRegistry) CountAccounts(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().
		Model((*entityRecord)(nil)).
		Where("type = ?", entityTypeUser).
		Count(ctx)
	if err != nil {
		return 0, mapError("count accounts", err)
	}
	return n, nil
}

// Ensure BunRegistry implements Registry and ConnectionRegistrar
var (
	_ Registry            = (*BunRegistry)(nil)
	_ ConnectionRegistrar = (*BunRegistry)(nil)
)
