package parser

import (
	"fmt"
	"io"
	"os"

	"github.com/sat-practice/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultExamPolicy is the digital SAT timing: 32 minutes per Reading and
// Writing module, 35 per Math module.
func DefaultExamPolicy() *models.ExamPolicy {
	return &models.ExamPolicy{
		DefaultModuleMinutes: 32,
		Modules: []models.ModuleTiming{
			{Subject: "Reading and Writing", Minutes: 32},
			{Subject: "Math", Minutes: 35},
		},
	}
}

// ParseExamPolicy parses a YAML timing policy file.
//
//	default_module_minutes: 32
//	modules:
//	  - subject: Math
//	    minutes: 35
func ParseExamPolicy(filePath string) (*models.ExamPolicy, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseExamPolicyFromReader(file)
}

// ParseExamPolicyFromReader parses a policy from an io.Reader.
func ParseExamPolicyFromReader(r io.Reader) (*models.ExamPolicy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var policy models.ExamPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("invalid exam policy: %w", err)
	}
	for i, m := range policy.Modules {
		if m.Subject == "" {
			return nil, fmt.Errorf("invalid exam policy: module %d has no subject", i)
		}
		if m.Minutes < 0 {
			return nil, fmt.Errorf("invalid exam policy: %s has negative minutes", m.Subject)
		}
	}

	return &policy, nil
}
