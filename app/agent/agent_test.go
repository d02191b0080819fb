package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/types"
)

type fakeCompleter struct {
	system      string
	user        string
	temperature float64
	answer      string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string, temperature float64) (string, error) {
	f.system = system
	f.user = user
	f.temperature = temperature
	return f.answer, nil
}

func rankedPage(page int, text string) types.RankedPage {
	return types.RankedPage{PageRecord: types.PageRecord{Page: page, Text: text}, Score: 1}
}

func Test_BuildPrompt_Layout(t *testing.T) {
	prompt := BuildPrompt("What is the budget?", []types.RankedPage{
		rankedPage(1, "Alpha budget 2024"),
		rankedPage(3, "Alpha beta conclusion"),
	}, 4000)

	assert.True(t, strings.HasPrefix(prompt, "Question: What is the budget?\n\n"))
	assert.Contains(t, prompt, "Page 1:\n\"\"\"Alpha budget 2024\"\"\"")
	assert.Contains(t, prompt, "Page 3:\n\"\"\"Alpha beta conclusion\"\"\"")
	assert.Contains(t, prompt, "Write a clear answer with inline [pX] citations.")
	// Page order in the prompt follows ranking order.
	assert.Less(t, strings.Index(prompt, "Page 1:"), strings.Index(prompt, "Page 3:"))
}

func Test_BuildPrompt_ClipsLongPages(t *testing.T) {
	long := strings.Repeat("x", 5000)
	prompt := BuildPrompt("q", []types.RankedPage{rankedPage(1, long)}, 4000)

	assert.NotContains(t, prompt, long)
	assert.Contains(t, prompt, strings.Repeat("x", 4000)+" …")
}

func Test_GenerateAnswer_UsesCompleter(t *testing.T) {
	completer := &fakeCompleter{answer: "  The budget is 2024. [p1]  "}
	agent := New(completer, 4000)

	answer, err := agent.GenerateAnswer(context.Background(), "What is the budget?", []types.RankedPage{
		rankedPage(1, "Alpha budget 2024"),
	})
	require.NoError(t, err)

	assert.Equal(t, "The budget is 2024. [p1]", answer)
	assert.Contains(t, completer.system, "Answer strictly from the provided pages")
	assert.Contains(t, completer.user, "Alpha budget 2024")
	assert.InDelta(t, 0.2, completer.temperature, 1e-9)
}
