package storage

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}

	if err := db.Ping(); err != nil {
		return errors.Wrap(err, "ping sqlite")
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	_, err := d.DB.Exec(`
		CREATE TABLE IF NOT EXISTS terminals (
			id            INTEGER PRIMARY KEY,
			account_id    INTEGER NOT NULL DEFAULT 0,
			server        TEXT    NOT NULL DEFAULT '',
			terminal_path TEXT    NOT NULL DEFAULT '',
			created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return errors.Wrap(err, "create terminals table")
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveTerminal(def models.MTerminalConfig) error {
	_, err := d.DB.Exec(`
		INSERT INTO terminals (id, account_id, server, terminal_path)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			server = excluded.server,
			terminal_path = excluded.terminal_path;
	`, def.ID, def.AccountID, def.Server, def.TerminalPath)
	return errors.Wrapf(err, "save terminal %d", def.ID)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) DeleteTerminal(id int64) error {
	_, err := d.DB.Exec(`DELETE FROM terminals WHERE id = ?;`, id)
	return errors.Wrapf(err, "delete terminal %d", id)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) ListTerminals() ([]models.MTerminalConfig, error) {
	rows, err := d.DB.Query(`SELECT id, account_id, server, terminal_path FROM terminals ORDER BY id;`)
	if err != nil {
		return nil, errors.Wrap(err, "list terminals")
	}
	defer rows.Close()

	var defs []models.MTerminalConfig
	for rows.Next() {
		var def models.MTerminalConfig
		if err := rows.Scan(&def.ID, &def.AccountID, &def.Server, &def.TerminalPath); err != nil {
			return nil, errors.Wrap(err, "scan terminal row")
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
