package diff

import (
	"testing"

	"github.com/sprite-ai/revisor/internal/model"
)

func sampleChanges() []ParsedFileChange {
	return []ParsedFileChange{
		{File: "a.go", ChangeType: model.ChangeModified, Extension: "go", Additions: 5, Deletions: 2, Complexity: 7},
		{File: "b.ts", ChangeType: model.ChangeAdded, Extension: "ts", Additions: 20, Deletions: 0, Complexity: 20},
		{File: "c.go", ChangeType: model.ChangeDeleted, Extension: "go", Additions: 0, Deletions: 3, Complexity: 3},
	}
}

func TestSortByComplexity(t *testing.T) {
	in := sampleChanges()
	out := SortByComplexity(in)

	want := []string{"b.ts", "a.go", "c.go"}
	for i, name := range want {
		if out[i].File != name {
			t.Errorf("position %d: expected %s, got %s", i, name, out[i].File)
		}
	}
	// input untouched
	if in[0].File != "a.go" {
		t.Errorf("input slice was modified, first file is %s", in[0].File)
	}
}

func TestGroupByExtension(t *testing.T) {
	groups := GroupByExtension(sampleChanges())
	if len(groups["go"]) != 2 {
		t.Errorf("expected 2 go files, got %d", len(groups["go"]))
	}
	if len(groups["ts"]) != 1 {
		t.Errorf("expected 1 ts file, got %d", len(groups["ts"]))
	}
}

func TestFilterByChangeType(t *testing.T) {
	added := FilterByChangeType(sampleChanges(), model.ChangeAdded)
	if len(added) != 1 || added[0].File != "b.ts" {
		t.Errorf("expected only b.ts, got %+v", added)
	}
}

func TestCreateSummary(t *testing.T) {
	s := CreateSummary(sampleChanges())
	if s.TotalFiles != 3 {
		t.Errorf("expected 3 files, got %d", s.TotalFiles)
	}
	if s.TotalAdditions != 25 {
		t.Errorf("expected 25 additions, got %d", s.TotalAdditions)
	}
	if s.TotalDeletions != 5 {
		t.Errorf("expected 5 deletions, got %d", s.TotalDeletions)
	}
	if s.MostComplexFile != "b.ts" {
		t.Errorf("expected most complex file b.ts, got %s", s.MostComplexFile)
	}
	if s.ByExtension["go"] != 2 {
		t.Errorf("expected 2 go files, got %d", s.ByExtension["go"])
	}
}

func TestCreateSummaryEmpty(t *testing.T) {
	s := CreateSummary(nil)
	if s.TotalFiles != 0 || s.MostComplexFile != "" {
		t.Errorf("expected empty summary, got %+v", s)
	}
}
