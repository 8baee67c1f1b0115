package database

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint
	Name string
}

func TestNewSQLite(t *testing.T) {
	db, err := New(&Config{Driver: "sqlite", FilePath: ":memory:", MaxOpenConns: 1, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := AutoMigrate(db, &widget{}); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if err := db.Create(&widget{Name: "cam"}).Error; err != nil {
		t.Fatal(err)
	}
	var n int64
	db.Model(&widget{}).Count(&n)
	if n != 1 {
		t.Fatalf("count = %d", n)
	}
}

func TestNewUnsupportedDriver(t *testing.T) {
	if _, err := New(&Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLogLevel(t *testing.T) {
	if logLevel("") != logger.Warn || logLevel("info") != logger.Info || logLevel("silent") != logger.Silent {
		t.Fatal("unexpected log level mapping")
	}
}

func TestDialectorSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cameras.db")
	db, err := New(&Config{Driver: "sqlite", FilePath: path, LogLevel: "silent"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file: %v", err)
	}
}

func TestDialectorRequiresPath(t *testing.T) {
	if _, err := (&Config{Driver: "sqlite"}).Dialector(); err == nil {
		t.Fatal("expected error for empty sqlite path")
	}
}

func TestGormWriter(t *testing.T) {
	var buf bytes.Buffer
	w := gormWriter{l: zerolog.New(&buf)}
	w.Printf("%s [%.3fms] %s\n", "file.go:1", 1.5, "SELECT 1")
	if !strings.Contains(buf.String(), "SELECT 1") {
		t.Fatalf("log = %s", buf.String())
	}
}
