package parser

import (
	"encoding/json"
	"fmt"

	models "coipond/internal/domain/models/blueprint"
	bpService "coipond/internal/domain/services/blueprint"
)

// node is the JSON shape printed by the parser executable
type node struct {
	Kind        models.Kind `json:"kind"`
	Name        string      `json:"name"`
	GameVersion string      `json:"gameVersion"`
	Blueprints  []node      `json:"blueprints"`
	Folders     []node      `json:"blueprintFolders"`
}

// Decode converts parser output into a tree
func Decode(data []byte) (models.Tree, error) {
	var root node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: decode parser output: %w", bpService.ErrParse, err)
	}
	return root.toTree()
}

func (n node) toTree() (models.Tree, error) {
	switch n.Kind {
	case models.KindSingle:
		return &models.Leaf{Name: n.Name, GameVersion: n.GameVersion}, nil
	case models.KindFolder:
		return n.toFolder()
	default:
		return nil, fmt.Errorf("%w: unknown node kind %q", bpService.ErrParse, n.Kind)
	}
}

func (n node) toFolder() (*models.Folder, error) {
	folder := &models.Folder{
		Name:       n.Name,
		Blueprints: make([]*models.Leaf, 0, len(n.Blueprints)),
		Folders:    make([]*models.Folder, 0, len(n.Folders)),
	}
	for _, bp := range n.Blueprints {
		if bp.Kind != "" && bp.Kind != models.KindSingle {
			return nil, fmt.Errorf("%w: folder %q lists a %q node as a blueprint", bpService.ErrParse, n.Name, bp.Kind)
		}
		folder.Blueprints = append(folder.Blueprints, &models.Leaf{Name: bp.Name, GameVersion: bp.GameVersion})
	}
	for _, sub := range n.Folders {
		child, err := sub.toFolder()
		if err != nil {
			return nil, err
		}
		folder.Folders = append(folder.Folders, child)
	}
	return folder, nil
}
