package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/PuerkitoBio/goquery"
)

var (
	versionRe       = regexp.MustCompile(`\bv(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)\b`)
	buildManifestRe = regexp.MustCompile(`/_next/static/([^/]+)/_buildManifest\.js`)
)

// ErrNoBuildID is returned when the homepage carries no site build id.
var ErrNoBuildID = errors.New("no build id found")

// Detect reads the site homepage and returns the framework version shown on
// it and the site build id. selector narrows the search for the version
// text; an empty selector searches the whole body.
func Detect(r io.Reader, selector string) (*semver.Version, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("parsing homepage: %w", err)
	}

	scope := doc.Find("body")
	if selector != "" {
		scope = doc.Find(selector)
	}

	var found string
	scope.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := versionRe.FindStringSubmatch(s.Text()); m != nil {
			found = m[1]
			return false
		}
		return true
	})
	if found == "" {
		return nil, "", fmt.Errorf("no version string found in %q", selector)
	}
	v, err := semver.NewVersion(found)
	if err != nil {
		return nil, "", fmt.Errorf("parsing version %q: %w", found, err)
	}

	buildID, err := detectBuildID(doc)
	if err != nil {
		return nil, "", err
	}
	return v, buildID, nil
}

func detectBuildID(doc *goquery.Document) (string, error) {
	if data := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").Text()); data != "" {
		var next struct {
			BuildID string `json:"buildId"`
		}
		if err := json.Unmarshal([]byte(data), &next); err != nil {
			return "", fmt.Errorf("decoding __NEXT_DATA__: %w", err)
		}
		if next.BuildID != "" {
			return next.BuildID, nil
		}
	}

	var id string
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if m := buildManifestRe.FindStringSubmatch(src); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	if id == "" {
		return "", ErrNoBuildID
	}
	return id, nil
}
