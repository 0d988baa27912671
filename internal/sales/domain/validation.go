package domain

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult collects every violated rule instead of stopping at the first.
type ValidationResult struct {
	Errors []ValidationError `json:"errors,omitempty"`
}

func (r *ValidationResult) Add(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Message)
	}
	return out
}
