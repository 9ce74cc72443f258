package mog2

import (
	"context"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/LdDl/beecount/detect"
)

type matSource struct {
	frames []gocv.Mat
	next   int
}

func (source *matSource) Next(ctx context.Context) (gocv.Mat, error) {
	if source.next >= len(source.frames) {
		return gocv.Mat{}, io.EOF
	}
	frame := source.frames[source.next]
	source.next++
	return frame, nil
}

func (source *matSource) Close() error {
	for _, frame := range source.frames {
		frame.Close()
	}
	return nil
}

func blackFrame() gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3)
}

func TestDetectAfterWarmUp(t *testing.T) {
	background := &matSource{}
	for i := 0; i < 30; i++ {
		background.frames = append(background.frames, blackFrame())
	}
	defer background.Close()

	detector := NewDetector(DefaultConfig())
	defer detector.Close()

	learned, err := detect.Warm[gocv.Mat](context.Background(), background, detector, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, learned)

	frame := blackFrame()
	defer frame.Close()
	gocv.Circle(&frame, image.Pt(100, 120), 15, color.RGBA{R: 255, G: 255, B: 255, A: 0}, -1)

	blobs, err := detector.Detect(frame, 200, 1500)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.InDelta(t, 100, blobs[0].Center.X, 2)
	assert.InDelta(t, 120, blobs[0].Center.Y, 2)
	assert.InDelta(t, 700, blobs[0].Area, 100)

	// Same blob is rejected by area bounds
	blobs, err = detector.Detect(frame, 1000, 1500)
	require.NoError(t, err)
	assert.Empty(t, blobs)
}

func TestLearnRejectsEmptyFrame(t *testing.T) {
	detector := NewDetector(DefaultConfig())
	defer detector.Close()
	assert.Error(t, detector.Learn(gocv.NewMat()))
}
