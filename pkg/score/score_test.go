package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobsift/jobsift/pkg/model"
)

func testRules() Rules {
	return Rules{
		Keywords: map[string][]string{
			"tech":       {"python", "typescript", "postgresql"},
			"blockchain": {"blockchain", "ethereum", "smart contract"},
			"unknown":    {"mystery"},
		},
		Weights: map[string]int{
			"tech":       8,
			"blockchain": 20,
			// "unknown" intentionally has no weight.
		},
		Threshold: 10,
	}
}

func TestScoreText_CaseInsensitive(t *testing.T) {
	s := New(testRules())

	texts := []string{
		"Senior PYTHON Developer with Blockchain experience",
		"We use Python and Ethereum daily",
		"no matching keywords here",
	}
	for _, text := range texts {
		assert.Equal(t, s.ScoreText(text), s.ScoreText(strings.ToLower(text)), text)
	}
}

func TestScoreText_CategorySaturation(t *testing.T) {
	s := New(testRules())

	one := s.ScoreText("python shop")
	three := s.ScoreText("python typescript postgresql shop")
	assert.Equal(t, one, three, "multiple keywords from one category must not stack")
	assert.Equal(t, 8, one)
}

func TestScoreText_CategoriesAdd(t *testing.T) {
	s := New(testRules())
	assert.Equal(t, 28, s.ScoreText("python and ethereum"))
}

func TestScoreText_UnknownCategoryWeightZero(t *testing.T) {
	s := New(testRules())
	assert.Equal(t, 0, s.ScoreText("a mystery role"))
}

func TestScoreText_NoMatchIsZero(t *testing.T) {
	s := New(testRules())
	assert.Equal(t, 0, s.ScoreText("gardening assistant"))
}

func TestRelevant_StrictThreshold(t *testing.T) {
	s := New(testRules())

	assert.False(t, s.Relevant(10), "tie at threshold is excluded")
	assert.True(t, s.Relevant(11))
	assert.False(t, s.Relevant(0))
}

func TestFilterRelevant(t *testing.T) {
	s := New(testRules())

	jobs := []model.Job{
		{Title: "Blockchain Engineer", Description: "ethereum work"},
		{Title: "Python Developer"}, // tech only: 8 <= threshold 10
		{Title: "Gardener"},
	}

	relevant := s.FilterRelevant(jobs)
	assert.Len(t, relevant, 1)
	assert.Equal(t, "Blockchain Engineer", relevant[0].Title)
	assert.Equal(t, 20, relevant[0].RelevanceScore)

	// Scores are stamped on every input row, relevant or not.
	assert.Equal(t, 8, jobs[1].RelevanceScore)
	assert.Equal(t, 0, jobs[2].RelevanceScore)
}
