package builder

import (
	"path/filepath"

	"github.com/jcdickinson/twdocset/internal/config"
	"github.com/jcdickinson/twdocset/internal/version"
)

// Layout names the files of a docset bundle under the output directory.
type Layout struct {
	Docset    string
	Documents string
	Index     string
	Plist     string
	// VersionFile sits next to the bundle, not inside it.
	VersionFile string
}

func NewLayout(cfg *config.Config) Layout {
	docset := filepath.Join(cfg.Paths.Output, cfg.DocsetDir())
	contents := filepath.Join(docset, "Contents")
	resources := filepath.Join(contents, "Resources")
	return Layout{
		Docset:      docset,
		Documents:   filepath.Join(resources, "Documents"),
		Index:       filepath.Join(resources, "docSet.dsidx"),
		Plist:       filepath.Join(contents, "Info.plist"),
		VersionFile: filepath.Join(cfg.Paths.Output, version.FileName),
	}
}
