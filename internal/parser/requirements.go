package parser

import (
	"strings"

	"github.com/sat-practice/backend/internal/models"
)

// DeriveImageRequirements lists every question that needs an image, in
// section then question order. Duplicate filenames are kept.
func DeriveImageRequirements(doc *models.ParsedDocument) []models.ImageRequirement {
	reqs := make([]models.ImageRequirement, 0)
	if doc == nil {
		return reqs
	}
	for _, sec := range doc.Sections {
		for _, q := range sec.Questions {
			if !q.RequiresImage {
				continue
			}
			typ := q.ImageType
			if typ == "" {
				typ = models.ImageTypeQuestion
			}
			reqs = append(reqs, models.ImageRequirement{
				TestName:    doc.TestName,
				Section:     sec.Name,
				QuestionID:  q.ID,
				Filename:    q.ImageFilename,
				Description: q.ImageDescription,
				Type:        typ,
			})
		}
	}
	return reqs
}

// GroupRequirementsByTest groups requirements by test name in first-seen order.
func GroupRequirementsByTest(reqs []models.ImageRequirement) []models.RequirementGroup {
	var groups []models.RequirementGroup
	index := make(map[string]int)
	for _, r := range reqs {
		i, ok := index[r.TestName]
		if !ok {
			i = len(groups)
			index[r.TestName] = i
			groups = append(groups, models.RequirementGroup{TestName: r.TestName})
		}
		groups[i].Requirements = append(groups[i].Requirements, r)
	}
	return groups
}

// FilenameCollisions returns the requirements that share a filename with
// another requirement, keyed by the lowercased filename.
func FilenameCollisions(reqs []models.ImageRequirement) map[string][]models.ImageRequirement {
	byName := make(map[string][]models.ImageRequirement)
	for _, r := range reqs {
		key := strings.ToLower(r.Filename)
		byName[key] = append(byName[key], r)
	}
	collisions := make(map[string][]models.ImageRequirement)
	for name, rs := range byName {
		if len(rs) > 1 {
			collisions[name] = rs
		}
	}
	return collisions
}
