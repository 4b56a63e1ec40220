package rule

// Result is the outcome of checking one Rule. An empty Error means the rule passed.
type Result struct {
	Rule             Rule   `json:"rule"`
	Error            string `json:"error,omitempty"`
	Multiplier       *int   `json:"multiplier,omitempty"`
	UniqueConstraint string `json:"unique_constraint,omitempty"`
}

// Passed reports whether the rule was satisfied.
func (r Result) Passed() bool { return r.Error == "" }

// Pass builds a passing result.
func Pass(r Rule) Result { return Result{Rule: r} }

// Fail builds a failing result carrying a user-facing message.
func Fail(r Rule, msg string) Result { return Result{Rule: r, Error: msg} }

// Verdict aggregates all results of one evaluation pass.
type Verdict struct {
	EvaluationID string   `json:"evaluation_id"`
	Results      []Result `json:"results"`
	IsSuccess    bool     `json:"is_success"`
	// UniqueConstraints is the comma-joined set of non-empty constraints; empty when none.
	UniqueConstraints string `json:"unique_constraints,omitempty"`
	// ErrorMessage carries an infrastructure failure, distinct from per-rule errors.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Errors returns the per-rule error messages in result order.
func (v Verdict) Errors() []string {
	var out []string
	for _, r := range v.Results {
		if r.Error != "" {
			out = append(out, r.Error)
		}
	}
	return out
}
