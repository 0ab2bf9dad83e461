package model

import (
	"encoding/json"
	"sort"
)

// Manifest is the metadata.json record of a finished run.
//
// The JSON shape depends on the mode. Proxy runs carry crocseek_proxy_base and
// original_to_proxied_mapping; direct runs carry downloaded_files instead.
// Every list is sorted, and lists and maps are always present, never null.
type Manifest struct {
	// BaseURL is the target URL as given, path included.
	BaseURL         string
	ProxyBase       string
	Mode            Mode
	ScrapedPages    []string
	ProxyMapping    map[string]string
	DownloadedFiles map[string]string
	JSFiles         []string
	CSSFiles        []string
	ImageFiles      []string
	OtherResources  []string
}

// inventoryJSON is embedded so both shapes end with the same four lists.
type inventoryJSON struct {
	JSFiles        []string `json:"js_files"`
	CSSFiles       []string `json:"css_files"`
	ImageFiles     []string `json:"image_files"`
	OtherResources []string `json:"other_resources"`
}

type proxyManifestJSON struct {
	BaseURL      string            `json:"base_url"`
	ProxyBase    string            `json:"crocseek_proxy_base"`
	ScrapedPages []string          `json:"scraped_pages"`
	ProxyMapping map[string]string `json:"original_to_proxied_mapping"`
	inventoryJSON
}

type directManifestJSON struct {
	BaseURL         string            `json:"base_url"`
	ScrapedPages    []string          `json:"scraped_pages"`
	DownloadedFiles map[string]string `json:"downloaded_files"`
	inventoryJSON
}

// manifestInput accepts either shape when reading a manifest back.
type manifestInput struct {
	BaseURL         string            `json:"base_url"`
	ProxyBase       *string           `json:"crocseek_proxy_base"`
	ScrapedPages    []string          `json:"scraped_pages"`
	ProxyMapping    map[string]string `json:"original_to_proxied_mapping"`
	DownloadedFiles map[string]string `json:"downloaded_files"`
	inventoryJSON
}

// NewManifest snapshots run into a Manifest.
func NewManifest(run *Run) *Manifest {
	m := &Manifest{
		BaseURL:        run.Target.URL,
		Mode:           run.Mode,
		ScrapedPages:   run.State.Visited(),
		JSFiles:        run.State.Resources(CategoryScript),
		CSSFiles:       run.State.Resources(CategoryStyle),
		ImageFiles:     run.State.Resources(CategoryImage),
		OtherResources: run.State.Resources(CategoryOther),
	}

	if run.Mode == ModeProxy {
		m.ProxyBase = run.ProxyBase
		m.ProxyMapping = run.State.Mapping()
		return m
	}

	files := run.State.Files()
	m.DownloadedFiles = make(map[string]string, len(files))
	for _, f := range files {
		m.DownloadedFiles[f.URL] = f.Path
	}
	return m
}

// Total returns the number of resources across all four inventory lists.
func (m *Manifest) Total() int {
	return len(m.JSFiles) + len(m.CSSFiles) + len(m.ImageFiles) + len(m.OtherResources)
}

// MarshalJSON writes the mode-specific shape.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	inv := inventoryJSON{
		JSFiles:        sortedCopy(m.JSFiles),
		CSSFiles:       sortedCopy(m.CSSFiles),
		ImageFiles:     sortedCopy(m.ImageFiles),
		OtherResources: sortedCopy(m.OtherResources),
	}

	if m.Mode == ModeProxy {
		return json.Marshal(proxyManifestJSON{
			BaseURL:       m.BaseURL,
			ProxyBase:     m.ProxyBase,
			ScrapedPages:  sortedCopy(m.ScrapedPages),
			ProxyMapping:  nonNilMap(m.ProxyMapping),
			inventoryJSON: inv,
		})
	}
	return json.Marshal(directManifestJSON{
		BaseURL:         m.BaseURL,
		ScrapedPages:    sortedCopy(m.ScrapedPages),
		DownloadedFiles: nonNilMap(m.DownloadedFiles),
		inventoryJSON:   inv,
	})
}

// UnmarshalJSON reads either shape. The presence of crocseek_proxy_base
// selects ModeProxy.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var in manifestInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*m = Manifest{
		BaseURL:         in.BaseURL,
		Mode:            ModeDirect,
		ScrapedPages:    in.ScrapedPages,
		ProxyMapping:    in.ProxyMapping,
		DownloadedFiles: in.DownloadedFiles,
		JSFiles:         in.JSFiles,
		CSSFiles:        in.CSSFiles,
		ImageFiles:      in.ImageFiles,
		OtherResources:  in.OtherResources,
	}
	if in.ProxyBase != nil {
		m.Mode = ModeProxy
		m.ProxyBase = *in.ProxyBase
	}
	return nil
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

func nonNilMap(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return in
}
