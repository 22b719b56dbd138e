package hls

import (
	"path"
	"path/filepath"
)

// Localize returns a copy of files in which every manifest references its
// entries relative to its own key, so the tree can be written to disk and
// opened by a player that resolves URIs against the playlist's directory.
// Only locations naming a key present in files are changed. Manifests that
// fail to parse are copied unchanged.
func Localize(files FileMap) FileMap {
	out := make(FileMap, len(files))
	for key, data := range files {
		out[key] = data
		if !IsManifestPath(key) {
			continue
		}

		p, err := Parse(data)
		if err != nil {
			continue
		}

		dir := path.Dir(key)
		changed := false
		for _, e := range p.Entries {
			if _, ok := files[e.Location]; !ok {
				continue
			}
			rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(e.Location))
			if err != nil {
				continue
			}
			e.Location = filepath.ToSlash(rel)
			changed = true
		}
		if changed {
			out[key] = p.Encode()
		}
	}
	return out
}
