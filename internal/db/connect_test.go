package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func tempDSN(t *testing.T) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), "exams.db")
}

func TestOpenAppliesLedgerOnce(t *testing.T) {
	ctx := context.Background()
	dsn := tempDSN(t)

	db, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ids, err := AppliedMigrations(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != len(Migrations) {
		t.Fatalf("applied=%v", ids)
	}
	for i, m := range Migrations {
		if ids[i] != m.ID {
			t.Errorf("ledger[%d]=%q want %q", i, ids[i], m.ID)
		}
	}

	// second run is a no-op
	if err := Migrate(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
	db.Close()

	db, err = Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	ids, _ = AppliedMigrations(ctx, db)
	if len(ids) != len(Migrations) {
		t.Fatalf("ledger grew on reopen: %v", ids)
	}
}

func TestUniqueEmailIsEnforcedByStore(t *testing.T) {
	ctx := context.Background()
	dsn := tempDSN(t)
	db, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `INSERT INTO users (email, role, created_at) VALUES ($1,'student',0)`, "a@example.com"); err != nil {
		t.Fatal(err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO users (email, role, created_at) VALUES ($1,'student',0)`, "a@example.com")
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("IsUniqueViolation(%v)=false", err)
	}
	if IsUniqueViolation(nil) {
		t.Fatal("nil is not a violation")
	}
}

func TestForeignKeysAreOn(t *testing.T) {
	ctx := context.Background()
	dsn := tempDSN(t)
	db, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var on int
	if err := db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatal(err)
	}
	if on != 1 {
		t.Fatalf("foreign_keys=%d", on)
	}
}

func TestSQLiteDSN(t *testing.T) {
	got := sqliteDSN("file:x.db")
	if !strings.Contains(got, "?_pragma=foreign_keys(1)") || !strings.Contains(got, "&_pragma=busy_timeout(5000)") {
		t.Errorf("dsn=%q", got)
	}
	kept := sqliteDSN("file:x.db?_pragma=foreign_keys(0)&_pragma=busy_timeout(10)")
	if kept != "file:x.db?_pragma=foreign_keys(0)&_pragma=busy_timeout(10)" {
		t.Errorf("explicit pragmas were rewritten: %q", kept)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), Driver("mysql"), ""); err == nil {
		t.Fatal("expected error")
	}
}
