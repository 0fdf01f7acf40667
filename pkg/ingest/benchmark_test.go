package ingest

import (
	"context"
	"fmt"
	"testing"

	"github.com/japaniel/readinglist/pkg/db"
	"github.com/japaniel/readinglist/pkg/readinglist"
)

func generateBenchmarkLinks(n int) []Link {
	links := make([]Link, 0, n)
	for i := 0; i < n; i++ {
		links = append(links, Link{
			URL:   fmt.Sprintf("https://example.com/articles/%d", i),
			Title: fmt.Sprintf("Article %d", i),
		})
	}
	return links
}

func BenchmarkImport(b *testing.B) {
	links := generateBenchmarkLinks(1000)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		conn, err := db.Open(ctx, db.Options{Driver: db.DriverSQLite3, DSN: ":memory:"})
		if err != nil {
			b.Fatalf("failed to open db: %v", err)
		}
		im := NewImporter(readinglist.New(conn, nil, nil), nil)
		b.StartTimer()

		res, err := im.Import(ctx, links)
		if err != nil {
			b.Fatalf("Import failed: %v", err)
		}
		if res.Added != len(links) {
			b.Fatalf("added %d of %d", res.Added, len(links))
		}

		b.StopTimer()
		_ = conn.Close()
		b.StartTimer()
	}
}

func BenchmarkWorkerPool(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		p := NewWorkerPool(4, 8)
		p.Start(ctx)
		for j := 0; j < 1000; j++ {
			_ = p.Submit(func(ctx context.Context) error { return nil })
		}
		p.Close()
	}
}
