// Package version models docset versions: the upstream semantic version,
// the site build that produced it, and a local revision counter that
// distinguishes rebuilds of the same version from different site builds.
package version

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// FileName is the descriptor stored next to each built docset and archive.
const FileName = "version.json"

type Version struct {
	Version  *semver.Version
	BuildID  string
	Revision int
}

type descriptor struct {
	Version  string `json:"version"`
	BuildID  string `json:"build_id"`
	Revision int    `json:"revision"`
}

// New parses v and returns a Version with the given build id and revision.
func New(v, buildID string, revision int) (Version, error) {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return Version{}, fmt.Errorf("parsing version %q: %w", v, err)
	}
	if revision < 0 {
		return Version{}, fmt.Errorf("negative revision %d", revision)
	}
	return Version{Version: sv, BuildID: buildID, Revision: revision}, nil
}

// String renders the version as "<semver>-r<revision>", which is also the
// archive directory name.
func (v Version) String() string {
	if v.Version == nil {
		return ""
	}
	return fmt.Sprintf("%s-r%d", v.Version.String(), v.Revision)
}

func (v Version) MarshalJSON() ([]byte, error) {
	d := descriptor{BuildID: v.BuildID, Revision: v.Revision}
	if v.Version != nil {
		d.Version = v.Version.String()
	}
	return json.Marshal(d)
}

func (v *Version) UnmarshalJSON(data []byte) error {
	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := New(d.Version, d.BuildID, d.Revision)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Compare orders by semantic version, then revision. The build id is not
// part of the ordering.
func Compare(a, b Version) int {
	if c := a.Version.Compare(b.Version); c != 0 {
		return c
	}
	switch {
	case a.Revision < b.Revision:
		return -1
	case a.Revision > b.Revision:
		return 1
	}
	return 0
}

// Sort orders versions ascending by Compare.
func Sort(vs []Version) {
	sort.SliceStable(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) < 0 })
}

// NextRevision derives the revision for a freshly downloaded snapshot. The
// greatest known version not newer than downloaded decides: none or an older
// version resets to 0, the same build keeps its revision, a different build
// of the same version bumps it.
func NextRevision(downloaded *semver.Version, buildID string, known []Version) int {
	var latest *Version
	for i := range known {
		k := known[i]
		if k.Version.GreaterThan(downloaded) {
			continue
		}
		if latest == nil || Compare(k, *latest) > 0 {
			latest = &known[i]
		}
	}

	switch {
	case latest == nil, latest.Version.LessThan(downloaded):
		return 0
	case latest.BuildID == buildID:
		return latest.Revision
	default:
		return latest.Revision + 1
	}
}

// Derive builds the Version for a downloaded snapshot and reports whether
// it is newer than everything in known.
func Derive(downloaded *semver.Version, buildID string, known []Version) (Version, bool) {
	v := Version{
		Version:  downloaded,
		BuildID:  buildID,
		Revision: NextRevision(downloaded, buildID, known),
	}
	for _, k := range known {
		if Compare(v, k) <= 0 {
			return v, false
		}
	}
	return v, true
}

// Load reads a version descriptor.
func Load(path string) (Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Version{}, fmt.Errorf("reading version descriptor: %w", err)
	}
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return Version{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return v, nil
}

// Save writes a version descriptor, creating parent directories.
func Save(path string, v Version) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating version directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding version: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
