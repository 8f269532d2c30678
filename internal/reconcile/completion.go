package reconcile

// Attempt is one logged outcome for a completion-tracked process:
// a key that was attempted this run, and whether it completed.
type Attempt struct {
	Key       string
	Completed bool
}

// CompletionReport summarizes expected-vs-attempted-vs-completed for
// any downstream completion-tracking process (mail drafts, exports).
type CompletionReport struct {
	Expected  int
	Attempted int
	Completed int
	// Missing lists expected keys never attempted, in the iteration
	// order of the expected set.
	Missing []string
}

// Completion reconciles the expected key set against the attempts
// logged for one run. Duplicate attempts for a key count once.
func Completion(expected []string, attempts []Attempt) CompletionReport {
	attempted := make(map[string]bool)
	completed := make(map[string]bool)
	for _, a := range attempts {
		attempted[a.Key] = true
		if a.Completed {
			completed[a.Key] = true
		}
	}

	r := CompletionReport{
		Expected:  len(expected),
		Attempted: len(attempted),
		Completed: len(completed),
	}
	for _, k := range expected {
		if !attempted[k] {
			r.Missing = append(r.Missing, k)
		}
	}
	return r
}
