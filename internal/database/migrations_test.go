package database

import (
	"strings"
	"testing"
)

func TestMigrations_VersionsUniqueAndSorted(t *testing.T) {
	seen := make(map[int]bool)
	for _, m := range Migrations {
		if seen[m.Version] {
			t.Fatalf("duplicate migration version %d", m.Version)
		}
		seen[m.Version] = true
		if strings.TrimSpace(m.Up) == "" || strings.TrimSpace(m.Down) == "" {
			t.Errorf("migration %d must have both up and down", m.Version)
		}
	}

	sorted := sortedMigrations()
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Version >= sorted[i].Version {
			t.Fatalf("migrations not sorted: %d before %d", sorted[i-1].Version, sorted[i].Version)
		}
	}
}
