package sqlstore

import "testing"

func TestNormalizeDriver(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"postgres", DriverPostgres, false},
		{"PostgreSQL", DriverPostgres, false},
		{"pg", DriverPostgres, false},
		{"sqlite", DriverSQLite, false},
		{"sqlite3", DriverSQLite, false},
		{"", "", true},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := normalizeDriver(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("normalizeDriver(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("normalizeDriver(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpen_SQLiteInMemory(t *testing.T) {
	db, err := Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		t.Fatalf("ping sqlite: %v", err)
	}
}

func TestWrap_RequiresConnection(t *testing.T) {
	if _, err := Wrap("postgres", nil); err == nil {
		t.Fatalf("expected nil connection to be rejected")
	}
}
