//go:build bench

package sitesnap

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/alnah/go-sitesnap/internal/document"
)

// BenchmarkAggregator_Append measures append-and-persist cost per entry
// for a few page sizes. Each iteration re-saves the resident page.
func BenchmarkAggregator_Append(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("page=%d", size), func(b *testing.B) {
			base := filepath.Join(b.TempDir(), "bench")
			agg := NewAggregator(document.Store{}, base, size, zerolog.Nop())
			res := CaptureResult{
				Record:       Record{Index: 1, Name: "Example", Address: "example.com"},
				ArtifactPath: filepath.Join(b.TempDir(), "missing.png"),
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := agg.Append(res); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkAssignArtifactPaths measures naming with heavy collisions.
func BenchmarkAssignArtifactPaths(b *testing.B) {
	records := make([]Record, 1000)
	for i := range records {
		records[i] = Record{Index: i, Name: fmt.Sprintf("site-%d", i%50)}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = AssignArtifactPaths(records, "shots")
	}
}
