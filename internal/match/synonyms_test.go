package match

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSynonymGroupsDefaults(t *testing.T) {
	groups, err := LoadSynonymGroups("")
	if err != nil {
		t.Fatalf("LoadSynonymGroups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 default groups, got %d", len(groups))
	}
	if groups[0].Anchor != "makati" || groups[1].Anchor != "cyber" {
		t.Fatalf("unexpected default anchors: %+v", groups)
	}
}

func TestLoadSynonymGroupsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	contents := `groups:
  - anchor: Harbor
    synonyms: [Logistics, log]
  - anchor: ""
    synonyms: [ignored]
  - anchor: orphan
    synonyms: []
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	groups, err := LoadSynonymGroups(path)
	if err != nil {
		t.Fatalf("LoadSynonymGroups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 usable group, got %d: %+v", len(groups), groups)
	}
	if groups[0].Anchor != "harbor" {
		t.Fatalf("anchor not normalized: %+v", groups[0])
	}
	if len(groups[0].Synonyms) != 2 || groups[0].Synonyms[0] != "logistics" {
		t.Fatalf("synonyms not normalized: %+v", groups[0])
	}
}

func TestLoadSynonymGroupsMissingFile(t *testing.T) {
	if _, err := LoadSynonymGroups("/nonexistent/synonyms.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
