// Package task provides composable submission validators. Validators are pure; the
// working/evaluating/completed workflow around them belongs to the caller.
package task

import (
	"fmt"
	"strings"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// Reason codes emitted by the built-in validators.
const (
	ReasonComplete        = "complete"
	ReasonEmpty           = "empty"
	ReasonTooShort        = "too_short"
	ReasonTooLong         = "too_long"
	ReasonInvalidInput    = "invalid_input"
	ReasonTooFewWords     = "too_few_words"
	ReasonMissingKeywords = "missing_keywords"
	ReasonEvaluationError = "evaluation_error"
)

// FullScore is awarded by the built-in validators on success.
const FullScore = 100

// Length passes when the trimmed submission has at least minLength characters.
func Length(minLength int) domain.Validator {
	return func(submission string) domain.Result {
		text := strings.TrimSpace(submission)
		if text == "" {
			return domain.Failure(ReasonEmpty, "Write something before submitting.")
		}
		if n := len([]rune(text)); n < minLength {
			return domain.Failure(ReasonTooShort, fmt.Sprintf("Your answer has %d characters; at least %d are needed.", n, minLength))
		}
		return domain.Success(ReasonComplete, "Looks good!", FullScore)
	}
}

// WordCount passes when the submission has at least minWords whitespace-separated words.
func WordCount(minWords int) domain.Validator {
	return func(submission string) domain.Result {
		words := strings.Fields(submission)
		if len(words) == 0 {
			return domain.Failure(ReasonEmpty, "Write something before submitting.")
		}
		if len(words) < minWords {
			return domain.Failure(ReasonTooFewWords, fmt.Sprintf("Your answer has %d words; at least %d are needed.", len(words), minWords))
		}
		return domain.Success(ReasonComplete, "Looks good!", FullScore)
	}
}

// Keywords passes when every keyword appears in the submission, case-insensitively,
// as a substring.
func Keywords(keywords ...string) domain.Validator {
	return func(submission string) domain.Result {
		haystack := strings.ToLower(submission)
		var missing []string
		for _, kw := range keywords {
			if !strings.Contains(haystack, strings.ToLower(kw)) {
				missing = append(missing, kw)
			}
		}
		if len(missing) > 0 {
			return domain.Failure(ReasonMissingKeywords, "Missing keywords: "+strings.Join(missing, ", "))
		}
		return domain.Success(ReasonComplete, "All keywords found.", FullScore)
	}
}

// Sequence runs validators in order and returns the first failure, or the last success.
// An empty sequence succeeds.
func Sequence(validators ...domain.Validator) domain.Validator {
	return func(submission string) domain.Result {
		result := domain.Success(ReasonComplete, "Looks good!", FullScore)
		for _, v := range validators {
			result = v(submission)
			if !result.OK {
				return result
			}
		}
		return result
	}
}

// Run invokes a validator and turns a panic into an evaluation_error failure, so a
// submission always yields exactly one structured result.
func Run(v domain.Validator, submission string) (result domain.Result, err error) {
	if v == nil {
		return domain.Failure(ReasonEvaluationError, "This task cannot be checked."),
			domain.NewError(domain.CodeTaskEvaluationError, "task has no validator")
	}
	defer func() {
		if r := recover(); r != nil {
			result = domain.Failure(ReasonEvaluationError, "Something went wrong while checking your answer.")
			err = domain.WrapError(domain.CodeTaskEvaluationError, "validator panicked", fmt.Errorf("%v", r))
		}
	}()
	return v(submission), nil
}
