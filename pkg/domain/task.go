package domain

// Result is the structured outcome of validating a submission.
type Result struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Score   *int   `json:"score,omitempty"`
}

// Success builds a passing result.
func Success(reason, message string, score int) Result {
	return Result{OK: true, Reason: reason, Message: message, Score: &score}
}

// Failure builds a failing result.
func Failure(reason, message string) Result {
	return Result{OK: false, Reason: reason, Message: message}
}

// Validator is a pure function from submission to result.
type Validator func(submission string) Result

// Task is a unit of player work.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Validate    Validator `json:"-"`
}
