package builder

import (
	"fmt"

	"github.com/beevik/etree"
)

// PlistInfo is what the docset viewer reads from Info.plist.
type PlistInfo struct {
	BundleID    string
	Name        string
	Platform    string
	IndexPath   string
	FallbackURL string
}

// WritePlist writes the bundle's Info.plist.
func WritePlist(path string, info PlistInfo) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective(`DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd"`)

	plist := doc.CreateElement("plist")
	plist.CreateAttr("version", "1.0")
	dict := plist.CreateElement("dict")

	str := func(key, value string) {
		dict.CreateElement("key").SetText(key)
		dict.CreateElement("string").SetText(value)
	}
	flag := func(key string, value bool) {
		dict.CreateElement("key").SetText(key)
		if value {
			dict.CreateElement("true")
		} else {
			dict.CreateElement("false")
		}
	}

	str("CFBundleIdentifier", info.BundleID)
	str("CFBundleName", info.Name)
	str("DocSetPlatformFamily", info.Platform)
	str("dashIndexFilePath", info.IndexPath)
	if info.FallbackURL != "" {
		str("DashDocSetFallbackURL", info.FallbackURL)
	}
	flag("isDashDocset", true)
	flag("isJavaScriptEnabled", true)

	doc.Indent(2)
	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("writing Info.plist: %w", err)
	}
	return nil
}
