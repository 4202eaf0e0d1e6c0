package predict

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunBatchKeepsOrder(t *testing.T) {
	var items []BatchItem
	for i := 0; i < 50; i++ {
		in := testInput()
		in.Age = float64(20 + i)
		items = append(items, BatchItem{Row: i + 2, Input: in})
	}
	items[3].Error = "age: пустое значение"

	next := &countingPredictor{}
	out := RunBatch(context.Background(), next, items, 8, zap.NewNop())

	require.Len(t, out, 50)
	assert.Equal(t, 49, next.Calls())
	assert.Equal(t, 49, CountSucceeded(out))

	for i, item := range out {
		assert.Equal(t, i+2, item.Row)
		if i == 3 {
			assert.Nil(t, item.Result)
			assert.Equal(t, "age: пустое значение", item.Error)
			continue
		}
		require.NotNil(t, item.Result, "row %d", item.Row)
		assert.Equal(t, item.Input.Age/10, item.Result.Risk5YrPercent)
	}
}

func TestRunBatchHidesUpstreamDetails(t *testing.T) {
	next := &countingPredictor{err: fmt.Errorf("%w: status 500: traceback", ErrUpstream)}
	out := RunBatch(context.Background(), next, []BatchItem{{Row: 2, Input: testInput()}}, 0, zap.NewNop())

	assert.Equal(t, msgUpstream, out[0].Error)
	assert.NotContains(t, out[0].Error, "traceback")
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	next := &countingPredictor{}
	out := RunBatch(ctx, next, []BatchItem{{Row: 2, Input: testInput()}, {Row: 3, Input: testInput()}}, 2, zap.NewNop())

	assert.Equal(t, 0, next.Calls())
	assert.Equal(t, 0, CountSucceeded(out))
	for _, item := range out {
		assert.NotEmpty(t, item.Error)
	}
}
