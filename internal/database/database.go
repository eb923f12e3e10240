package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/midnightgrind/racedirector/internal/config"
	"github.com/midnightgrind/racedirector/internal/model"
)

// SchemaVersion is stored in director_infos on first setup.
const SchemaVersion = 1

var ErrNotConnected = errors.New("database: not connected")

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger

	cfg config.DBConfig
}

// NewManager creates a new database manager.
func NewManager(cfg config.DBConfig, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:            cfg,
		SqliteFilePath: cfg.SQLitePath,
		Logger:         log,
	}
}

// Connect opens the configured database. A postgres connection that fails
// falls back to an in-memory SQLite database that is dumped to
// SqliteFilePath on DumpMemoryToDisk.
func (m *Manager) Connect() error {
	var err error

	if m.cfg.Driver == "sqlite" {
		m.DB, err = m.GetSqliteDB(m.cfg.SQLitePath)
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to open SQLite DB: %w", err)
		}
	} else {
		m.DB, err = m.GetPostgresDB()
		if err == nil {
			err = m.ping()
		}
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
			m.ShouldSaveLocal = true
			m.DB, err = m.GetSqliteDB("")
			if err != nil || m.DB == nil {
				m.IsValid = false
				return fmt.Errorf("failed to get local SQLite DB: %w", err)
			}
		} else {
			m.Logger.Info().Msg("Connected to database")
		}
	}

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if m.DB.Dialector.Name() == "postgres" {
		m.SqlDB.SetMaxOpenConns(10)
	}

	m.IsValid = true
	return nil
}

func (m *Manager) ping() error {
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// PostgresDSN renders the connection string for cfg.
func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	m.Logger.Debug().Str("host", m.cfg.Host).Str("database", m.cfg.Database).Msg("Connecting to Postgres DB")

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(m.cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	db, err := OpenSqlite(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	} else {
		m.Logger.Info().Msg("Using local SQLite DB in memory with disk dump on close")
	}
	return db, nil
}

// OpenSqlite opens a SQLite database at path, or in memory when path is empty.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// Setup migrates tables and creates the info row if it doesn't exist.
func (m *Manager) Setup(serviceName string) error {
	if m.DB == nil {
		return ErrNotConnected
	}
	if err := Migrate(m.DB); err != nil {
		m.IsValid = false
		return err
	}

	var count int64
	if err := m.DB.Model(&model.DirectorInfo{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to read director_infos: %w", err)
	}
	if count == 0 {
		err := m.DB.Create(&model.DirectorInfo{ServiceName: serviceName, SchemaVersion: SchemaVersion}).Error
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to create director_infos entry: %w", err)
		}
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Migrate creates or updates the race schema on db.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DumpMemoryToDisk vacuums the in-memory database to SqliteFilePath.
// It is a no-op unless the manager fell back to local storage.
func (m *Manager) DumpMemoryToDisk() error {
	if !m.ShouldSaveLocal {
		return nil
	}
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, m.SqliteFilePath); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", m.SqliteFilePath).Msg("Dumped memory DB to disk")
	return nil
}

// Close dumps a local fallback database and closes the connection.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	dumpErr := m.DumpMemoryToDisk()
	var closeErr error
	if m.SqlDB != nil {
		closeErr = m.SqlDB.Close()
	}
	m.IsValid = false
	return errors.Join(dumpErr, closeErr)
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	// remove existing file if it exists
	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	if err := db.Exec("VACUUM INTO 'file:" + sqliteFilePath + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}
