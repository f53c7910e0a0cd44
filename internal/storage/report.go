package storage

type ValidationEntry struct {
	OK      bool   `json:"ok"`
	Warning bool   `json:"warning,omitempty"`
	Message string `json:"message"`
}

// ValidationReport collects the outcome of every check run on one file.
type ValidationReport struct {
	Entries []ValidationEntry `json:"entries"`
}

func (r *ValidationReport) Pass(msg string) {
	r.Entries = append(r.Entries, ValidationEntry{OK: true, Message: msg})
}

// Warn records an advisory entry: it is counted but never fails the file.
func (r *ValidationReport) Warn(msg string) {
	r.Entries = append(r.Entries, ValidationEntry{OK: true, Warning: true, Message: msg})
}

func (r *ValidationReport) Fail(msg string) {
	r.Entries = append(r.Entries, ValidationEntry{OK: false, Message: msg})
}

func (r *ValidationReport) Valid() bool {
	for _, e := range r.Entries {
		if !e.OK {
			return false
		}
	}
	return true
}

type ReportSummary struct {
	Total       int      `json:"total"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	Warnings    int      `json:"warnings"`
	SuccessRate float64  `json:"success_rate"`
	Errors      []string `json:"errors"`
	Messages    []string `json:"messages"`
	Valid       bool     `json:"valid"`
}

func (r *ValidationReport) Summary() ReportSummary {
	s := ReportSummary{Total: len(r.Entries), Errors: []string{}, Messages: []string{}}
	for _, e := range r.Entries {
		if !e.OK {
			s.Failed++
			s.Errors = append(s.Errors, e.Message)
			continue
		}
		s.Succeeded++
		if e.Warning {
			s.Warnings++
		}
		s.Messages = append(s.Messages, e.Message)
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Total) * 100
	}
	s.Valid = s.Failed == 0
	return s
}

// FileReport ties a validation report to the upload slot it came from.
type FileReport struct {
	Machine   string           `json:"machine"`
	Indicator string           `json:"indicator"`
	Filename  string           `json:"filename"`
	Rows      int              `json:"rows"`
	Dropped   int              `json:"dropped"`
	Report    ValidationReport `json:"report"`
	Summary   ReportSummary    `json:"summary"`
}
