package sitesnap

// Notes:
// - Page content format is covered in internal/document; these tests check
//   placement, persistence, and resumption.

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/alnah/go-sitesnap/internal/document"
	"github.com/alnah/go-sitesnap/internal/fileutil"
)

// resultFor writes a real artifact for rec and returns a success result.
func resultFor(t *testing.T, dir string, rec Record) CaptureResult {
	t.Helper()
	path := filepath.Join(dir, rec.Name+".png")
	if err := fileutil.WriteFileAtomic(path, screenshotPNG); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}
	return CaptureResult{Record: rec, Outcome: OutcomeSuccess, ArtifactPath: path}
}

func readPage(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading page %s: %v", path, err)
	}
	return string(data)
}

// ---------------------------------------------------------------------------
// TestAggregator_PageBoundaries
// ---------------------------------------------------------------------------

func TestAggregator_PageBoundaries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "report")
	agg := NewAggregator(document.Store{}, base, 2, zerolog.Nop())

	var placements []Placement
	for _, rec := range records(5) {
		pl, err := agg.Append(resultFor(t, dir, rec))
		if err != nil {
			t.Fatalf("Append error = %v", err)
		}
		placements = append(placements, pl)
	}

	wantPages := []int{0, 0, 1, 1, 2}
	for i, pl := range placements {
		if pl.Index != i {
			t.Errorf("placement %d Index = %d", i, pl.Index)
		}
		if pl.Page != wantPages[i] || pl.Slot != i%2 {
			t.Errorf("placement %d = page %d slot %d, want page %d slot %d", i, pl.Page, pl.Slot, wantPages[i], i%2)
		}
	}

	wantPaths := []string{base + "(0-2).md", base + "(2-4).md", base + "(4-6).md"}
	gotPaths := agg.Pages()
	if len(gotPaths) != len(wantPaths) {
		t.Fatalf("Pages() = %v, want %v", gotPaths, wantPaths)
	}
	for i := range wantPaths {
		if gotPaths[i] != wantPaths[i] {
			t.Errorf("Pages()[%d] = %q, want %q", i, gotPaths[i], wantPaths[i])
		}
	}

	// Each record appears in its own page and nowhere else.
	for i, rec := range records(5) {
		marker := "**网站名称:** " + rec.Name
		for p, path := range wantPaths {
			has := strings.Contains(readPage(t, path), marker+"\n")
			if has != (p == wantPages[i]) {
				t.Errorf("record %s in page %d = %v", rec.Name, p, has)
			}
		}
	}

	if agg.Count() != 5 {
		t.Errorf("Count() = %d, want 5", agg.Count())
	}
	// Pages 0 and 1 are full and evicted; page 2 stays resident.
	if agg.Resident() != 1 {
		t.Errorf("Resident() = %d, want 1", agg.Resident())
	}
}

// ---------------------------------------------------------------------------
// TestAggregator_ConcurrentAppend - counter and slots under contention
// ---------------------------------------------------------------------------

func TestAggregator_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	const (
		goroutines = 16
		perG       = 25
		pageSize   = 7
	)
	dir := t.TempDir()
	agg := NewAggregator(document.Store{}, filepath.Join(dir, "stress"), pageSize, zerolog.Nop())
	res := resultFor(t, dir, Record{Index: 1, Name: "shared", Address: "a"})

	var (
		mu    sync.Mutex
		slots = map[[2]int]bool{}
		idxs  = map[int]bool{}
		wg    sync.WaitGroup
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				pl, err := agg.Append(res)
				if err != nil {
					t.Errorf("Append error = %v", err)
					return
				}
				mu.Lock()
				key := [2]int{pl.Page, pl.Slot}
				if slots[key] {
					t.Errorf("slot %v assigned twice", key)
				}
				slots[key] = true
				idxs[pl.Index] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	const total = goroutines * perG
	if agg.Count() != total {
		t.Errorf("Count() = %d, want %d", agg.Count(), total)
	}
	for i := 0; i < total; i++ {
		if !idxs[i] {
			t.Errorf("completion index %d never assigned", i)
		}
	}

	entries := 0
	for _, path := range agg.Pages() {
		page, ok, err := document.Store{}.Load(path)
		if err != nil || !ok {
			t.Fatalf("Load(%s) = %v, %v", path, ok, err)
		}
		entries += page.Entries()
	}
	if entries != total {
		t.Errorf("entries on disk = %d, want %d", entries, total)
	}
}

// ---------------------------------------------------------------------------
// TestAggregator_Resume - existing pages are appended to, not replaced
// ---------------------------------------------------------------------------

func TestAggregator_Resume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "report")
	recs := records(3)

	first := NewAggregator(document.Store{}, base, 10, zerolog.Nop())
	if _, err := first.Append(resultFor(t, dir, recs[0])); err != nil {
		t.Fatalf("Append error = %v", err)
	}

	second := NewAggregator(document.Store{}, base, 10, zerolog.Nop())
	for _, rec := range recs[1:] {
		if _, err := second.Append(resultFor(t, dir, rec)); err != nil {
			t.Fatalf("Append error = %v", err)
		}
	}

	content := readPage(t, base+"(0-10).md")
	for _, rec := range recs {
		if !strings.Contains(content, rec.Name) {
			t.Errorf("page missing %s after resume", rec.Name)
		}
	}
	if n := strings.Count(content, "# report (0-10)"); n != 1 {
		t.Errorf("heading appears %d times, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// TestAggregator_Entry - labels, passthrough, image
// ---------------------------------------------------------------------------

func TestAggregator_EntryLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "out")
	agg := NewAggregator(document.Store{}, base, 100, zerolog.Nop())

	rec := Record{
		Index:   12,
		Name:    "Portal",
		Address: "portal.example",
		Extra:   []Field{{Label: "主办单位", Value: "Org"}},
		Labels:  Labels{Index: "No"},
	}
	res := resultFor(t, filepath.Join(dir, "screenshots"), rec)
	if _, err := agg.Append(res); err != nil {
		t.Fatalf("Append error = %v", err)
	}
	missing := CaptureResult{
		Record:       Record{Index: 13, Name: "Lost", Address: "lost.example"},
		Outcome:      OutcomeFallback,
		ArtifactPath: filepath.Join(dir, "screenshots", "Lost.png"),
	}
	if _, err := agg.Append(missing); err != nil {
		t.Fatalf("Append error = %v", err)
	}

	content := readPage(t, base+"(0-100).md")
	for _, want := range []string{
		"**No:** 12\n",
		"**网站名称:** Portal\n",
		"**网站域名:** portal.example\n",
		"**主办单位:** Org\n",
		"![Portal](<screenshots/Portal.png>)",
		"**网站名称:** Lost\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("page missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "Lost.png") {
		t.Error("unreadable artifact should not be embedded")
	}
}

func TestAggregator_EntryDetails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "out")
	agg := NewAggregator(document.Store{}, base, 100, zerolog.Nop())

	plain := resultFor(t, dir, Record{Index: 1, Name: "Plain", Address: "plain.example"})
	moved := resultFor(t, dir, Record{Index: 2, Name: "Moved", Address: "moved.example"})
	moved.FinalURL, moved.Redirected = "https://moved.example/home", true
	down := CaptureResult{
		Record:   Record{Index: 3, Name: "Down", Address: "down.example"},
		Outcome:  OutcomeFallback,
		Attempts: 3,
		FinalURL: "http://down.example",
		Err:      errFakeUnreachable,
	}
	for _, res := range []CaptureResult{plain, moved, down} {
		if _, err := agg.Append(res); err != nil {
			t.Fatalf("Append error = %v", err)
		}
	}

	content := readPage(t, base+"(0-100).md")
	for _, want := range []string{
		"redirected_to: \"https://moved.example/home\"\n",
		"outcome: \"fallback\"\nattempts: \"3\"\nurl: \"http://down.example\"\n",
		"error: \"" + errFakeUnreachable.Error() + "\"\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("page missing %q:\n%s", want, content)
		}
	}
	if n := strings.Count(content, "```yaml"); n != 2 {
		t.Errorf("details blocks = %d, want 2 (plain success has none)", n)
	}
}

// ---------------------------------------------------------------------------
// TestAggregator_SaveFailure
// ---------------------------------------------------------------------------

func TestAggregator_SaveFailure(t *testing.T) {
	t.Parallel()

	store := &failingStore{okSaves: 1}
	agg := NewAggregator(store, "report", 10, zerolog.Nop())
	res := CaptureResult{Record: Record{Index: 1, Name: "a", Address: "a"}}

	if _, err := agg.Append(res); err != nil {
		t.Fatalf("first Append error = %v", err)
	}
	_, err := agg.Append(res)
	if !errors.Is(err, ErrAggregate) {
		t.Fatalf("second Append error = %v, want ErrAggregate", err)
	}
	if agg.Count() != 2 {
		t.Errorf("Count() = %d, want 2 (failed slot stays consumed)", agg.Count())
	}
}

func TestAggregator_LoadFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "report")
	// A directory where the page file should be makes Load fail.
	if err := os.Mkdir(base+"(0-10).md", 0o750); err != nil {
		t.Fatalf("setup: %v", err)
	}

	agg := NewAggregator(document.Store{}, base, 10, zerolog.Nop())
	_, err := agg.Append(CaptureResult{Record: Record{Index: 1, Name: "a", Address: "a"}})
	if !errors.Is(err, ErrAggregate) {
		t.Errorf("Append error = %v, want ErrAggregate", err)
	}
}

func TestNewAggregator_PageSizeFloor(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(&failingStore{okSaves: 1}, "r", 0, zerolog.Nop())
	pl, err := agg.Append(CaptureResult{Record: Record{Index: 1, Name: "a", Address: "a"}})
	if err != nil {
		t.Fatalf("Append error = %v", err)
	}
	if pl.Path != "r(0-100).md" {
		t.Errorf("Path = %q, want default page size", pl.Path)
	}
}
