package vault

// Tree is a per-request materialization of one owner's folder hierarchy.
// The store hands back flat lists; parent/child links are rebuilt here so the
// path resolver gets O(1) children-by-name lookups. A tree is never mutated
// after construction and is discarded with the request.
type Tree struct {
	byID     map[string]*Folder
	children map[string]map[string][]*Folder // parent id ("" for roots) -> name -> folders
	keys     map[string]map[string][]*Key    // folder id -> name -> environment variants
}

// BuildTree indexes a flat folder list plus the keys they contain.
// Self-references and parent cycles are data corruption: the whole subtree is
// rejected with ErrCyclicStructure instead of being walked.
func BuildTree(folders []*Folder, keys []*Key) (*Tree, error) {
	t := &Tree{
		byID:     make(map[string]*Folder, len(folders)),
		children: make(map[string]map[string][]*Folder),
		keys:     make(map[string]map[string][]*Key),
	}
	for _, f := range folders {
		t.byID[f.ID] = f
	}
	for _, f := range folders {
		if err := t.checkAncestry(f); err != nil {
			return nil, err
		}
		parent := f.ParentID
		if _, ok := t.byID[parent]; !ok {
			// Orphaned parent pointers degrade to roots rather than vanishing.
			parent = ""
		}
		byName := t.children[parent]
		if byName == nil {
			byName = make(map[string][]*Folder)
			t.children[parent] = byName
		}
		byName[f.Name] = append(byName[f.Name], f)
	}
	for _, k := range keys {
		byName := t.keys[k.FolderID]
		if byName == nil {
			byName = make(map[string][]*Key)
			t.keys[k.FolderID] = byName
		}
		byName[k.Name] = append(byName[k.Name], k)
	}
	return t, nil
}

// checkAncestry walks the parent chain of f. The chain must terminate at a
// root within len(byID) steps; revisiting a node means a cycle.
func (t *Tree) checkAncestry(f *Folder) error {
	seen := map[string]struct{}{f.ID: {}}
	current := f
	for steps := 0; current.ParentID != ""; steps++ {
		if current.ParentID == current.ID {
			return ErrCyclicStructure
		}
		parent, ok := t.byID[current.ParentID]
		if !ok {
			return nil // dangling parent, treated as root by the builder
		}
		if _, dup := seen[parent.ID]; dup {
			return ErrCyclicStructure
		}
		if steps >= len(t.byID) {
			return ErrCyclicStructure
		}
		seen[parent.ID] = struct{}{}
		current = parent
	}
	return nil
}

// Folder returns the folder with the given id, if present.
func (t *Tree) Folder(id string) (*Folder, bool) {
	f, ok := t.byID[id]
	return f, ok
}

// ChildFolders returns the child folders named name under parentID
// ("" selects roots).
func (t *Tree) ChildFolders(parentID, name string) []*Folder {
	byName := t.children[parentID]
	if byName == nil {
		return nil
	}
	return byName[name]
}

// Subfolders returns every direct child folder of parentID.
func (t *Tree) Subfolders(parentID string) []*Folder {
	var out []*Folder
	for _, group := range t.children[parentID] {
		out = append(out, group...)
	}
	return out
}

// KeysNamed returns every environment variant of a key name inside folderID.
func (t *Tree) KeysNamed(folderID, name string) []*Key {
	byName := t.keys[folderID]
	if byName == nil {
		return nil
	}
	return byName[name]
}

// Keys returns every key contained directly in folderID.
func (t *Tree) Keys(folderID string) []*Key {
	var out []*Key
	for _, group := range t.keys[folderID] {
		out = append(out, group...)
	}
	return out
}

// Ancestors returns the chain from root down to the folder's direct parent.
// BuildTree has already rejected cycles, so the walk is bounded.
func (t *Tree) Ancestors(folderID string) []*Folder {
	var chain []*Folder
	current, ok := t.byID[folderID]
	if !ok {
		return nil
	}
	for current.ParentID != "" {
		parent, ok := t.byID[current.ParentID]
		if !ok {
			break
		}
		chain = append([]*Folder{parent}, chain...)
		current = parent
	}
	return chain
}
