package upload

import (
	"path/filepath"
	"strings"

	"github.com/sat-practice/backend/internal/models"
)

// RequirementStatus pairs an image requirement with the upload that satisfies it.
type RequirementStatus struct {
	models.ImageRequirement
	Uploaded   bool   `json:"uploaded"`
	UploadedAs string `json:"uploadedAs,omitempty"`
}

// ImageKey normalizes a filename for matching: base name, lowercased, without
// extension. "Dir/June_S1M1_Q3.PNG" and "june_s1m1_q3.jpg" share a key.
func ImageKey(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// MatchImages reports, for every requirement in order, whether one of the
// uploaded names satisfies it.
func MatchImages(reqs []models.ImageRequirement, uploaded []string) []RequirementStatus {
	byKey := make(map[string]string, len(uploaded))
	for _, name := range uploaded {
		k := ImageKey(name)
		if _, dup := byKey[k]; !dup {
			byKey[k] = name
		}
	}

	out := make([]RequirementStatus, 0, len(reqs))
	for _, r := range reqs {
		st := RequirementStatus{ImageRequirement: r}
		if name, ok := byKey[ImageKey(r.Filename)]; ok {
			st.Uploaded = true
			st.UploadedAs = name
		}
		out = append(out, st)
	}
	return out
}

// ResolveImages fills ImageURL from urls (keyed by uploaded filename) and
// clears the transient ImageName on every resolved question. missing lists
// the expected filenames that had no upload.
func ResolveImages(questions []models.FlatQuestion, urls map[string]string) (resolved []models.FlatQuestion, missing []string) {
	byKey := make(map[string]string, len(urls))
	for name, url := range urls {
		byKey[ImageKey(name)] = url
	}

	resolved = make([]models.FlatQuestion, len(questions))
	for i, q := range questions {
		if q.ImageName != "" {
			if url, ok := byKey[ImageKey(q.ImageName)]; ok {
				q.ImageURL = url
				q.ImageName = ""
			} else {
				missing = append(missing, q.ImageName)
			}
		}
		resolved[i] = q
	}
	return resolved, missing
}
