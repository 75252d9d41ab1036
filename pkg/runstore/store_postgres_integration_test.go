//go:build integration

package runstore

import (
	"context"
	"errors"
	"testing"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresSnapshotFlow(t *testing.T) {
	ctx := context.Background()
	pg, err := tcpostgres.RunContainer(ctx,
		tcpostgres.WithDatabase("nanoagent"),
		tcpostgres.WithUsername("nanoagent"),
		tcpostgres.WithPassword("nanoagent"),
		tcpostgres.WithSQLDriver("pgx"),
	)
	if err != nil {
		t.Skipf("skip: cannot start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	for _, rec := range []Record{
		{RunID: "runpg", StateID: "s1", State: []byte(`{"n":1}`)},
		{RunID: "runpg", StateID: "s2", Halt: "stopped", State: []byte(`{"n":2}`)},
	} {
		if err := s.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.LoadLatest(ctx, "runpg")
	if err != nil {
		t.Fatal(err)
	}
	if latest.StateID != "s2" || latest.Halt != "stopped" {
		t.Fatalf("unexpected latest: %+v", latest)
	}

	all, err := s.List(ctx, "runpg")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].StateID != "s1" {
		t.Fatalf("unexpected list: %+v", all)
	}

	if _, err := s.LoadLatest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
