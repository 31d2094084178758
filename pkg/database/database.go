package database

import (
	"fmt"
	"log"

	authdomain "mailmirror-backend/internal/auth/domain"
	emaildomain "mailmirror-backend/internal/email/domain"
	emailRepo "mailmirror-backend/internal/email/repository"
	"mailmirror-backend/pkg/config"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var postgresExtensions = []string{"pg_trgm", "unaccent", "vector"}

// Trigram indexes backing the % operator in fuzzy search
var postgresIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_messages_subject_unaccent_trgm ON messages USING GIN (` + emailRepo.FuzzySubjectExpr + ` gin_trgm_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender_unaccent_trgm ON messages USING GIN (` + emailRepo.FuzzySenderExpr + ` gin_trgm_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_user_date ON messages (user_id, internal_date DESC)`,
}

// NewPostgresConnection opens the gorm connection, enables the extensions
// search relies on and migrates every table.
func NewPostgresConnection(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	for _, ext := range postgresExtensions {
		if err := db.Exec(fmt.Sprintf(`CREATE EXTENSION IF NOT EXISTS "%s"`, ext)).Error; err != nil {
			return nil, fmt.Errorf("failed to enable extension %s: %w", ext, err)
		}
	}

	if err := db.Exec(emailRepo.ImmutableUnaccentFunction).Error; err != nil {
		return nil, fmt.Errorf("failed to create immutable_unaccent: %w", err)
	}

	if err := db.AutoMigrate(&authdomain.User{}, &emaildomain.Message{}, &emaildomain.QueryHistory{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, stmt := range postgresIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("Connected to postgres")
	return db, nil
}

// NewSQLiteConnection opens a sqlite file and applies the message store
// migrations. Writes are serialized through a single connection.
func NewSQLiteConnection(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}

	if err := emailRepo.MigrateSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}

	log.Printf("Opened sqlite database %s", path)
	return db, nil
}
