package project

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultStructureDepth is how many directory levels FolderStructure descends by default
const DefaultStructureDepth = 3

var structureExcludes = map[string]struct{}{
	"__pycache__":  {},
	"venv":         {},
	"env":          {},
	".env":         {},
	".git":         {},
	"node_modules": {},
	"dist":         {},
	"build":        {},
	".idea":        {},
	".vscode":      {},
}

// FolderStructure describes the tree under root for display. Directories map to nested maps and files map to their
// own name. Hidden and environment entries, directories more than depth levels down, and directories with nothing
// to show are omitted. The result is nil when nothing under root is shown
func FolderStructure(root string, depth int) (map[string]any, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	return folderStructure(root, depth), nil
}

func folderStructure(dir string, depth int) map[string]any {
	if depth <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	structure := map[string]any{}
	for _, entry := range entries {
		name := entry.Name()
		if excludedFromStructure(name) {
			continue
		}
		if !entry.IsDir() {
			structure[name] = name
			continue
		}
		if child := folderStructure(filepath.Join(dir, name), depth-1); child != nil {
			structure[name] = child
		}
	}
	if len(structure) == 0 {
		return nil
	}
	return structure
}

func excludedFromStructure(name string) bool {
	if _, ok := structureExcludes[name]; ok {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "env")
}
