package db

import (
	"io/fs"
	"strings"
	"testing"

	"gorm.io/gorm/logger"

	"github.com/inkwell/blogmind/internal/models"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"postgresql scheme", "postgresql://u:p@localhost:5432/blog", "pgx5://u:p@localhost:5432/blog"},
		{"postgres scheme", "postgres://u:p@db/blog?sslmode=disable", "pgx5://u:p@db/blog?sslmode=disable"},
		{"already pgx5", "pgx5://u@db/blog", "pgx5://u@db/blog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := migrateURL(tt.input); got != tt.expected {
				t.Errorf("migrateURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("expected matching up/down migrations, got %d up and %d down", ups, downs)
	}

	schema, err := fs.ReadFile(migrationsFS, "migrations/000001_create_posts.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(schema), "UNIQUE INDEX IF NOT EXISTS posts_slug_key") {
		t.Error("posts schema must enforce slug uniqueness")
	}
}

func TestGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected logger.LogLevel
	}{
		{"DEBUG", logger.Info},
		{"info", logger.Warn},
		{"WARNING", logger.Error},
		{"ERROR", logger.Silent},
		{"whatever", logger.Warn},
	}

	for _, tt := range tests {
		if got := gormLogLevel(tt.level); got != tt.expected {
			t.Errorf("gormLogLevel(%q) = %v, want %v", tt.level, got, tt.expected)
		}
	}
}

func TestReactionIndex(t *testing.T) {
	index := reactionIndex(models.ReactionSets{
		LikedBy:    []string{"u1", "u2"},
		DislikedBy: []string{"u3"},
	})

	if len(index) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(index))
	}
	if index["u1"] != models.ReactionLike || index["u3"] != models.ReactionDislike {
		t.Errorf("unexpected index: %v", index)
	}
}
