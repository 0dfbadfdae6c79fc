package docs

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

// Shared assets every transformed page links to, written at the site root.
const (
	AssetCSS = "docset.css"
	AssetJS  = "docset.js"
)

//go:embed assets/docset.css assets/docset.js
var assets embed.FS

// WriteAssets writes the shared assets into dir.
func WriteAssets(dir string) error {
	for _, name := range []string{AssetCSS, AssetJS} {
		data, err := assets.ReadFile("assets/" + name)
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
