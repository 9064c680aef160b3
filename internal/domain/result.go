package domain

// ResultError is one reason a credential store operation was rejected.
type ResultError struct {
	Code        string
	Description string
}

// Result is the outcome of a store mutation that can fail validation.
type Result struct {
	Errors []ResultError
}

// Success is the empty, successful Result.
var Success = Result{}

// Failed builds a Result carrying the given errors.
func Failed(errs ...ResultError) Result {
	return Result{Errors: errs}
}

// Succeeded reports whether the operation passed.
func (r Result) Succeeded() bool {
	return len(r.Errors) == 0
}

// Descriptions lists the error descriptions in order.
func (r Result) Descriptions() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Description)
	}
	return out
}
