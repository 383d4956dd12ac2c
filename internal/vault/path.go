package vault

import (
	"strings"
)

// MaxPathDepth bounds how many segments a path may carry. Deeper paths are
// rejected before any tree walk happens.
const MaxPathDepth = 32

// WantedType narrows what kind of node a path may terminate at.
type WantedType int

const (
	TypeAuto WantedType = iota
	TypeFolder
	TypeKey
)

// ParseWantedType maps the query-level type parameter onto a WantedType.
func ParseWantedType(raw string) (WantedType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return TypeAuto, nil
	case "folder":
		return TypeFolder, nil
	case "key":
		return TypeKey, nil
	}
	return TypeAuto, ErrInvalidInput
}

// ResolvedNode is the outcome of a path walk: either a folder or a group of
// key environment variants sharing one name, never both. Ancestors is the
// folder chain from root to the terminal node's parent, for response and
// audit path reconstruction.
type ResolvedNode struct {
	Folder    *Folder
	Keys      []*Key
	Ancestors []*Folder
}

// IsFolder reports whether the node terminated at a folder.
func (n *ResolvedNode) IsFolder() bool { return n.Folder != nil }

// OwnerID returns the owner of the terminal node.
func (n *ResolvedNode) OwnerID() string {
	if n.Folder != nil {
		return n.Folder.OwnerID
	}
	if len(n.Keys) > 0 {
		return n.Keys[0].OwnerID
	}
	return ""
}

// FullPath rebuilds the slash-delimited human path of the terminal node.
func (n *ResolvedNode) FullPath() string {
	var segments []string
	for _, f := range n.Ancestors {
		segments = append(segments, f.Name)
	}
	if n.Folder != nil {
		segments = append(segments, n.Folder.Name)
	} else if len(n.Keys) > 0 {
		segments = append(segments, n.Keys[0].Name)
	}
	return strings.Join(segments, "/")
}

// SplitPath breaks a raw slash-delimited path into segments. Empty segments,
// including leading and trailing slashes produced by doubled separators, are
// malformed rather than skipped.
func SplitPath(rawPath string) ([]string, error) {
	trimmed := strings.Trim(rawPath, "/")
	if strings.TrimSpace(trimmed) == "" {
		return nil, ErrMalformedPath
	}
	segments := strings.Split(trimmed, "/")
	if len(segments) > MaxPathDepth {
		return nil, ErrPathTooDeep
	}
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return nil, ErrMalformedPath
		}
	}
	return segments, nil
}

// ResolvePath walks the tree segment by segment from the owner's roots down
// to a terminal folder or key.
//
// Every segment except the last must name exactly one child folder; zero or
// several matches fail with a PathError carrying that segment's index. For
// the last segment a folder match wins over a key match under TypeAuto —
// folders are navigated first, and the type parameter exists to force the
// other reading.
func (t *Tree) ResolvePath(rawPath string, wanted WantedType) (*ResolvedNode, error) {
	segments, err := SplitPath(rawPath)
	if err != nil {
		return nil, err
	}

	currentID := "" // root scope
	var ancestors []*Folder
	for i, seg := range segments[:len(segments)-1] {
		matches := t.ChildFolders(currentID, seg)
		switch len(matches) {
		case 1:
			ancestors = append(ancestors, matches[0])
			currentID = matches[0].ID
		case 0:
			return nil, &PathError{SegmentIndex: i, Segment: seg, Err: ErrSegmentNotFound}
		default:
			return nil, &PathError{SegmentIndex: i, Segment: seg, Err: ErrSegmentAmbiguous}
		}
	}

	lastIdx := len(segments) - 1
	last := segments[lastIdx]

	if wanted == TypeAuto || wanted == TypeFolder {
		folders := t.ChildFolders(currentID, last)
		switch len(folders) {
		case 1:
			return &ResolvedNode{Folder: folders[0], Ancestors: ancestors}, nil
		case 0:
			// fall through to the key lookup
		default:
			return nil, &PathError{SegmentIndex: lastIdx, Segment: last, Err: ErrSegmentAmbiguous}
		}
		if wanted == TypeFolder {
			return nil, &PathError{SegmentIndex: lastIdx, Segment: last, Err: ErrSegmentNotFound}
		}
	}

	keys := t.KeysNamed(currentID, last)
	if len(keys) == 0 {
		return nil, &PathError{SegmentIndex: lastIdx, Segment: last, Err: ErrSegmentNotFound}
	}
	return &ResolvedNode{Keys: keys, Ancestors: ancestors}, nil
}
