package blueprint

// Tree is a parsed blueprint string: either a *Leaf or a *Folder.
// Trees are rebuilt from text on every read and never persisted.
type Tree interface {
	TreeName() string
	isTree()
}

// Leaf is a single blueprint with its declared game version
type Leaf struct {
	Name        string `json:"name"`
	GameVersion string `json:"gameVersion"`
}

// Folder groups blueprints and sub-folders. Both lists keep parser order.
type Folder struct {
	Name       string    `json:"name"`
	Blueprints []*Leaf   `json:"blueprints"`
	Folders    []*Folder `json:"blueprintFolders"`
}

func (l *Leaf) TreeName() string   { return l.Name }
func (f *Folder) TreeName() string { return f.Name }

func (*Leaf) isTree()   {}
func (*Folder) isTree() {}

// KindOf maps a parsed tree onto the persisted record kind
func KindOf(t Tree) Kind {
	if _, ok := t.(*Folder); ok {
		return KindFolder
	}
	return KindSingle
}

// FolderTreeNode is the display form of a folder: each level carries its own
// minimum game version so the UI can show it without re-walking the tree.
type FolderTreeNode struct {
	Name           string            `json:"name"`
	MinGameVersion string            `json:"minGameVersion"` // Empty for folders without blueprints
	Blueprints     []*LeafTreeNode   `json:"blueprints"`
	Folders        []*FolderTreeNode `json:"folders"`
}

// LeafTreeNode is the display form of a blueprint inside a folder
type LeafTreeNode struct {
	Name        string `json:"name"`
	Label       string `json:"label"` // "name (version: x)"
	GameVersion string `json:"gameVersion"`
}
