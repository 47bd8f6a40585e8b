package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Migrate creates the user_data table when it does not exist yet
	Migrate bool
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := newPostgresStorage(db, logger)

	if config.Migrate {
		if err := storage.initializeSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("error initializing database schema: %w", err)
		}
	}

	return storage, nil
}

func newPostgresStorage(db *sql.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	s.logger.Info("Database schema initialized")
	return nil
}

func (s *PostgresStorage) GetUserData(ctx context.Context, userID string) (json.RawMessage, error) {
	query := `
		SELECT data
		FROM user_data
		WHERE user_id = $1`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user data: %w", err)
	}

	if data == nil {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(data), nil
}

func (s *PostgresStorage) GetThread(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT current_thread
		FROM user_data
		WHERE user_id = $1`

	var threadID sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error querying current thread: %w", err)
	}

	if !threadID.Valid || threadID.String == "" {
		return "", ErrNoThread
	}
	return threadID.String, nil
}

func (s *PostgresStorage) SaveThread(ctx context.Context, userID string, threadID string) error {
	query := `
		UPDATE user_data
		SET current_thread = $1
		WHERE user_id = $2`

	result, err := s.db.ExecContext(ctx, query, threadID, userID)
	if err != nil {
		return fmt.Errorf("error updating current thread: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
