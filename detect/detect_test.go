package detect

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intSource struct {
	frames []int
	next   int
}

func (source *intSource) Next(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if source.next >= len(source.frames) {
		return 0, io.EOF
	}
	frame := source.frames[source.next]
	source.next++
	return frame, nil
}

func (source *intSource) Close() error { return nil }

type countingLearner struct {
	seen   []int
	failOn int
}

func (learner *countingLearner) Learn(frame int) error {
	if frame == learner.failOn {
		return errors.New("bad frame")
	}
	learner.seen = append(learner.seen, frame)
	return nil
}

func TestWarmStopsAtLimit(t *testing.T) {
	source := &intSource{frames: []int{1, 2, 3, 4, 5}}
	learner := &countingLearner{failOn: -1}
	learned, err := Warm[int](context.Background(), source, learner, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, learned)
	assert.Equal(t, []int{1, 2, 3}, learner.seen)
	// Remaining frames are left for the run
	next, err := source.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestWarmWholeStream(t *testing.T) {
	learner := &countingLearner{failOn: -1}
	learned, err := Warm[int](context.Background(), &intSource{frames: []int{1, 2, 3}}, learner, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, learned)
}

func TestWarmErrors(t *testing.T) {
	learner := &countingLearner{failOn: 2}
	learned, err := Warm[int](context.Background(), &intSource{frames: []int{1, 2, 3}}, learner, 0)
	assert.Error(t, err)
	assert.Equal(t, 1, learned)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Warm[int](ctx, &intSource{frames: []int{1}}, &countingLearner{failOn: -1}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInBoundsInclusive(t *testing.T) {
	assert.True(t, InBounds(200, 200, 1500))
	assert.True(t, InBounds(1500, 200, 1500))
	assert.False(t, InBounds(199.9, 200, 1500))
	assert.False(t, InBounds(1500.1, 200, 1500))
}
