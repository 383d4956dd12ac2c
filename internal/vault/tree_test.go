package vault

import (
	"errors"
	"testing"
)

func TestBuildTreeAndChildren(t *testing.T) {
	folders := []*Folder{
		{ID: "f1", Name: "Webmeter", OwnerID: "u1"},
		{ID: "f2", Name: "Database", ParentID: "f1", OwnerID: "u1"},
		{ID: "f3", Name: "Cache", ParentID: "f1", OwnerID: "u1"},
	}
	keys := []*Key{
		{ID: "k1", Name: "DB_URL", FolderID: "f2", OwnerID: "u1", Environment: EnvDevelopment},
		{ID: "k2", Name: "DB_URL", FolderID: "f2", OwnerID: "u1", Environment: EnvProduction},
	}
	tree, err := BuildTree(folders, keys)
	if err != nil {
		t.Fatal(err)
	}

	roots := tree.ChildFolders("", "Webmeter")
	if len(roots) != 1 || roots[0].ID != "f1" {
		t.Fatalf("unexpected roots: %#v", roots)
	}
	if got := len(tree.Subfolders("f1")); got != 2 {
		t.Fatalf("expected 2 subfolders, got %d", got)
	}
	variants := tree.KeysNamed("f2", "DB_URL")
	if len(variants) != 2 {
		t.Fatalf("expected 2 environment variants, got %d", len(variants))
	}
}

func TestBuildTreeSelfParentCycle(t *testing.T) {
	folders := []*Folder{
		{ID: "f1", Name: "Loop", ParentID: "f1", OwnerID: "u1"},
	}
	if _, err := BuildTree(folders, nil); !errors.Is(err, ErrCyclicStructure) {
		t.Fatalf("expected ErrCyclicStructure, got %v", err)
	}
}

func TestBuildTreeMutualCycle(t *testing.T) {
	folders := []*Folder{
		{ID: "a", Name: "A", ParentID: "b", OwnerID: "u1"},
		{ID: "b", Name: "B", ParentID: "a", OwnerID: "u1"},
	}
	if _, err := BuildTree(folders, nil); !errors.Is(err, ErrCyclicStructure) {
		t.Fatalf("expected ErrCyclicStructure, got %v", err)
	}
}

func TestBuildTreeDanglingParentBecomesRoot(t *testing.T) {
	folders := []*Folder{
		{ID: "f1", Name: "Orphan", ParentID: "gone", OwnerID: "u1"},
	}
	tree, err := BuildTree(folders, nil)
	if err != nil {
		t.Fatal(err)
	}
	roots := tree.ChildFolders("", "Orphan")
	if len(roots) != 1 {
		t.Fatalf("dangling parent should degrade to root, got %#v", roots)
	}
}

func TestAncestors(t *testing.T) {
	folders := []*Folder{
		{ID: "f1", Name: "A", OwnerID: "u1"},
		{ID: "f2", Name: "B", ParentID: "f1", OwnerID: "u1"},
		{ID: "f3", Name: "C", ParentID: "f2", OwnerID: "u1"},
	}
	tree, err := BuildTree(folders, nil)
	if err != nil {
		t.Fatal(err)
	}
	chain := tree.Ancestors("f3")
	if len(chain) != 2 || chain[0].ID != "f1" || chain[1].ID != "f2" {
		t.Fatalf("unexpected ancestor chain: %#v", chain)
	}
}
