package task_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/task"
)

func TestLength(t *testing.T) {
	v := task.Length(20)

	t.Run("Too short", func(t *testing.T) {
		res := v("hi")
		assert.False(t, res.OK)
		assert.Equal(t, task.ReasonTooShort, res.Reason)
		assert.Nil(t, res.Score)
	})

	t.Run("Complete", func(t *testing.T) {
		res := v(strings.Repeat("a", 25))
		require.True(t, res.OK)
		assert.Equal(t, task.ReasonComplete, res.Reason)
		require.NotNil(t, res.Score)
		assert.Equal(t, 100, *res.Score)
	})

	t.Run("Blank", func(t *testing.T) {
		assert.Equal(t, task.ReasonEmpty, v("   ").Reason)
	})

	t.Run("Counts runes", func(t *testing.T) {
		assert.True(t, task.Length(3)("ñãé").OK)
	})
}

func TestWordCount(t *testing.T) {
	v := task.WordCount(3)
	assert.Equal(t, task.ReasonTooFewWords, v("two words").Reason)
	assert.True(t, v("now three   words").OK)
	assert.Equal(t, task.ReasonEmpty, v("").Reason)
}

func TestKeywords(t *testing.T) {
	v := task.Keywords("start")
	assert.True(t, v("Let's start now").OK)

	res := v("begin now")
	assert.False(t, res.OK)
	assert.Equal(t, task.ReasonMissingKeywords, res.Reason)
	assert.Equal(t, "Missing keywords: start", res.Message, "the failure names the missing keyword")

	t.Run("Every missing keyword is named in order", func(t *testing.T) {
		res := task.Keywords("start", "loop", "end")("loop only")
		assert.Equal(t, task.ReasonMissingKeywords, res.Reason)
		assert.Equal(t, "Missing keywords: start, end", res.Message)
		assert.Nil(t, res.Score)
	})

	t.Run("Case insensitive substring, all required", func(t *testing.T) {
		v := task.Keywords("Loop", "VAR")
		assert.True(t, v("for loops over variables").OK)
		res := v("just loops")
		assert.False(t, res.OK)
		assert.Equal(t, task.ReasonMissingKeywords, res.Reason)
		assert.Equal(t, "Missing keywords: VAR", res.Message)
	})
}

func TestSequence(t *testing.T) {
	v := task.Sequence(task.Length(5), task.Keywords("loop"))

	assert.Equal(t, task.ReasonTooShort, v("loop").Reason, "first failure wins")
	assert.Equal(t, task.ReasonMissingKeywords, v("long enough").Reason)

	last := domain.Success("custom", "done", 7)
	res := task.Sequence(task.Length(1), func(string) domain.Result { return last })("x")
	assert.Equal(t, last, res, "last success is returned")

	assert.True(t, task.Sequence()("anything").OK)
}

func TestRun_RecoversPanics(t *testing.T) {
	res, err := task.Run(func(string) domain.Result { panic("bad content") }, "x")
	assert.False(t, res.OK)
	assert.Equal(t, task.ReasonEvaluationError, res.Reason)
	assert.ErrorIs(t, err, domain.ErrTaskEvaluation)

	res, err = task.Run(task.Length(1), "x")
	require.NoError(t, err)
	assert.True(t, res.OK)

	_, err = task.Run(nil, "x")
	assert.ErrorIs(t, err, domain.ErrTaskEvaluation)
}
