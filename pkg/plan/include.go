package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// includeResult carries one included document's contributions: its
// resolved plan items (includes already spliced in, recursively) plus the
// urls/global/databases it declared, for the caller to merge into the
// outer Config.
type includeResult struct {
	Items     []rawItem
	Urls      map[string]string
	Global    map[string]interface{}
	Databases map[string]rawDbEntry
}

// resolveIncludes walks items, splicing in the contents of any "include"
// entry in place of itself and accumulating the urls/global/databases of
// every included document. Included files are full benchmark documents
// (not bare plan-item lists), so an include can itself declare urls/global/
// databases, which the caller merges into the outer Config with the outer
// document's own values taking precedence on conflict. inProgress tracks
// the absolute paths currently being expanded so a file that (directly or
// transitively) includes itself is rejected instead of recursing forever.
func resolveIncludes(items []rawItem, baseDir string, inProgress map[string]bool) (includeResult, error) {
	result := includeResult{
		Urls:      map[string]string{},
		Global:    map[string]interface{}{},
		Databases: map[string]rawDbEntry{},
	}
	for _, it := range items {
		if it.Include == "" {
			result.Items = append(result.Items, it)
			continue
		}

		if strings.Contains(it.Include, "{{") {
			return includeResult{}, fmt.Errorf("include path must not contain interpolation placeholders: %s", it.Include)
		}

		incPath := it.Include
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(baseDir, incPath)
		}
		absInc, err := filepath.Abs(incPath)
		if err != nil {
			return includeResult{}, fmt.Errorf("resolving include path %s: %w", it.Include, err)
		}
		if inProgress[absInc] {
			return includeResult{}, fmt.Errorf("include cycle detected: %s", absInc)
		}

		data, err := os.ReadFile(absInc)
		if err != nil {
			return includeResult{}, fmt.Errorf("reading include %s: %w", absInc, err)
		}
		var subDoc rawDoc
		if err := yaml.Unmarshal(data, &subDoc); err != nil {
			return includeResult{}, fmt.Errorf("parsing include %s: %w", absInc, err)
		}

		inProgress[absInc] = true
		sub, err := resolveIncludes(subDoc.Plan, filepath.Dir(absInc), inProgress)
		delete(inProgress, absInc)
		if err != nil {
			return includeResult{}, err
		}

		// The included document's own declarations merge in before those of
		// the documents it includes, so the document that directly names an
		// include wins ties against documents it transitively reaches.
		mergeStringsInto(result.Urls, subDoc.Urls)
		mergeStringsInto(result.Urls, sub.Urls)
		mergeAnyInto(result.Global, subDoc.Global)
		mergeAnyInto(result.Global, sub.Global)
		mergeDbsInto(result.Databases, subDoc.Databases)
		mergeDbsInto(result.Databases, sub.Databases)

		result.Items = append(result.Items, sub.Items...)
	}
	return result, nil
}

// mergeStringsInto copies every key of src into dst that dst doesn't
// already have, so earlier (outer, or earlier-processed) entries always
// win on conflict.
func mergeStringsInto(dst, src map[string]string) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

func mergeAnyInto(dst, src map[string]interface{}) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

func mergeDbsInto(dst, src map[string]rawDbEntry) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}
