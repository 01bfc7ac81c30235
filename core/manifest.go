package core

import (
	"encoding/json"
	"os"
)

// Manifest is the subset of the extension manifest the router needs:
// the declared content-script file lists.
type Manifest struct {
	ContentScriptEntries []ContentScriptEntry `json:"content_scripts"`
}

// ContentScriptEntry is one content_scripts block.
type ContentScriptEntry struct {
	Matches []string `json:"matches,omitempty"`
	JS      []string `json:"js,omitempty"`
}

// ContentScripts flattens the script file lists in declaration order.
func (m Manifest) ContentScripts() ([]string, error) {
	var files []string
	for _, entry := range m.ContentScriptEntries {
		files = append(files, entry.JS...)
	}
	return files, nil
}

// ParseManifest decodes a manifest document.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// FileManifest reads the manifest from disk on every use, so a
// repacked extension is picked up without a coordinator restart.
type FileManifest struct {
	Path string
}

// ContentScripts implements ManifestSource.
func (f FileManifest) ContentScripts() ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	return m.ContentScripts()
}
