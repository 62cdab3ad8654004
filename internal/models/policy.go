package models

import "strings"

// ExamPolicy defines module timing for structured delivery.
// Loaded from a YAML file so timings can change without a rebuild.
type ExamPolicy struct {
	DefaultModuleMinutes int            `json:"defaultModuleMinutes" yaml:"default_module_minutes"`
	Modules              []ModuleTiming `json:"modules" yaml:"modules"`
}

// ModuleTiming binds a subject (matched case-insensitively against the
// section subject, e.g. "Math") to a per-module time limit.
type ModuleTiming struct {
	Subject string `json:"subject" yaml:"subject"`
	Minutes int    `json:"minutes" yaml:"minutes"`
}

// TimeLimitSec returns the module time limit for subject in seconds.
// A nil policy means untimed (0).
func (p *ExamPolicy) TimeLimitSec(subject string) int {
	if p == nil {
		return 0
	}
	for _, m := range p.Modules {
		if strings.EqualFold(strings.TrimSpace(m.Subject), strings.TrimSpace(subject)) {
			return m.Minutes * 60
		}
	}
	return p.DefaultModuleMinutes * 60
}
