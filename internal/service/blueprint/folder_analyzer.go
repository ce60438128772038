package blueprint

import (
	"errors"
	"fmt"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
)

// ErrEmptyFolder is returned when a folder holds no blueprints at any depth
var ErrEmptyFolder = errors.New("folder must contain at least one blueprint")

// MinGameVersion returns the lowest game version of any blueprint in the folder
// or its sub-folders.
//
// Versions compare as plain strings, so "1.0.10" < "1.0.2". Stored game versions
// were always derived this way and listings sort on them, so the ordering must
// not change.
func MinGameVersion(folder *models.Folder) (string, error) {
	min, ok := minGameVersion(folder)
	if !ok {
		return "", fmt.Errorf("folder %q: %w", folder.Name, ErrEmptyFolder)
	}
	return min, nil
}

// minGameVersion walks the folder depth-first. Empty sub-folders contribute nothing.
func minGameVersion(folder *models.Folder) (string, bool) {
	var min string
	found := false

	for _, bp := range folder.Blueprints {
		if !found || bp.GameVersion < min {
			min = bp.GameVersion
			found = true
		}
	}

	for _, sub := range folder.Folders {
		subMin, ok := minGameVersion(sub)
		if ok && (!found || subMin < min) {
			min = subMin
			found = true
		}
	}

	return min, found
}

// DeriveGameVersion returns the version stored on a record for a parsed tree:
// a blueprint's own version, or a folder's minimum.
func DeriveGameVersion(tree models.Tree) (string, error) {
	switch t := tree.(type) {
	case *models.Leaf:
		return t.GameVersion, nil
	case *models.Folder:
		return MinGameVersion(t)
	default:
		return "", fmt.Errorf("unknown tree node %T", tree)
	}
}

// BuildTreeView converts a folder into its display tree. Blueprints are listed
// before sub-folders at every level.
func BuildTreeView(folder *models.Folder) *models.FolderTreeNode {
	min, _ := minGameVersion(folder)
	node := &models.FolderTreeNode{
		Name:           folder.Name,
		MinGameVersion: min,
		Blueprints:     make([]*models.LeafTreeNode, 0, len(folder.Blueprints)),
		Folders:        make([]*models.FolderTreeNode, 0, len(folder.Folders)),
	}

	for _, bp := range folder.Blueprints {
		node.Blueprints = append(node.Blueprints, &models.LeafTreeNode{
			Name:        bp.Name,
			Label:       fmt.Sprintf("%s (version: %s)", bp.Name, bp.GameVersion),
			GameVersion: bp.GameVersion,
		})
	}
	for _, sub := range folder.Folders {
		node.Folders = append(node.Folders, BuildTreeView(sub))
	}

	return node
}

// analyzeContent derives the kind and game version a record stores for a tree.
// An empty folder is a validation error.
func analyzeContent(tree models.Tree) (models.Kind, string, error) {
	version, err := DeriveGameVersion(tree)
	if err != nil {
		if errors.Is(err, ErrEmptyFolder) {
			return "", "", fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		return "", "", err
	}
	return models.KindOf(tree), version, nil
}
