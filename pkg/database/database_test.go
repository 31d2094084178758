package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	emaildomain "mailmirror-backend/internal/email/domain"
	emailRepo "mailmirror-backend/internal/email/repository"
)

func TestNewSQLiteConnectionMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")

	db, err := NewSQLiteConnection(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	repo := emailRepo.NewSQLiteMessageRepository(db)
	ctx := context.Background()
	msg := &emaildomain.Message{UserID: "u", ID: "m1", Subject: "hello", InternalDate: 1}
	if err := repo.UpsertMany(ctx, []*emaildomain.Message{msg}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	db.Close()

	// Reopening must not re-apply migrations.
	db, err = NewSQLiteConnection(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	existing, err := emailRepo.NewSQLiteMessageRepository(db).FindExistingIDs(ctx, "u", []string{"m1"})
	if err != nil || len(existing) != 1 {
		t.Errorf("existing = %v, %v", existing, err)
	}
}

func TestPostgresTrigramIndexesMatchFuzzyQueryExpressions(t *testing.T) {
	for _, expr := range []string{emailRepo.FuzzySubjectExpr, emailRepo.FuzzySenderExpr} {
		found := false
		for _, stmt := range postgresIndexes {
			if strings.Contains(stmt, "("+expr+" gin_trgm_ops)") {
				found = true
			}
		}
		if !found {
			t.Errorf("no trigram index on %s", expr)
		}
	}
	if !strings.Contains(emailRepo.ImmutableUnaccentFunction, "IMMUTABLE") {
		t.Error("unaccent wrapper must be IMMUTABLE to back an expression index")
	}
}
