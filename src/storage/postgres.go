package storage

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return errors.Wrap(err, "open postgres")
	}

	if err := db.Ping(); err != nil {
		return errors.Wrap(err, "ping postgres")
	}

	d.DB = db
	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	_, err := d.DB.Exec(`
		CREATE TABLE IF NOT EXISTS terminals (
			id            BIGINT PRIMARY KEY,
			account_id    BIGINT NOT NULL DEFAULT 0,
			server        TEXT   NOT NULL DEFAULT '',
			terminal_path TEXT   NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ DEFAULT now()
		);
	`)
	return errors.Wrap(err, "create terminals table")
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveTerminal(def models.MTerminalConfig) error {
	_, err := d.DB.Exec(`
		INSERT INTO terminals (id, account_id, server, terminal_path)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			server = EXCLUDED.server,
			terminal_path = EXCLUDED.terminal_path;
	`, def.ID, def.AccountID, def.Server, def.TerminalPath)
	return errors.Wrapf(err, "save terminal %d", def.ID)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) DeleteTerminal(id int64) error {
	_, err := d.DB.Exec(`DELETE FROM terminals WHERE id = $1;`, id)
	return errors.Wrapf(err, "delete terminal %d", id)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ListTerminals() ([]models.MTerminalConfig, error) {
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

func (d *PostgresDB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
