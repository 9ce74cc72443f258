package replay

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/beecount/detect"
	"github.com/LdDl/beecount/mot"
)

const recording = `frame;x;y;area
0;5;5;300
0;9;9;100
2;10;11;400
3;;;
`

func TestSourceFillsGaps(t *testing.T) {
	source, err := NewSource(strings.NewReader(recording))
	require.NoError(t, err)
	require.Equal(t, 4, source.Len())

	ctx := context.Background()
	expectedBlobs := []int{2, 0, 1, 0}
	for i, expected := range expectedBlobs {
		frame, err := source.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, frame.Index)
		assert.Len(t, frame.Blobs, expected)
	}
	_, err = source.Next(ctx)
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, source.Close())
}

func TestSourceRejectsDecreasingFrames(t *testing.T) {
	_, err := NewSource(strings.NewReader("frame;x;y;area\n2;1;1;1\n1;1;1;1\n"))
	assert.Error(t, err)
}

func TestSourceRejectsBadNumbers(t *testing.T) {
	_, err := NewSource(strings.NewReader("0;abc;1;1\n"))
	assert.Error(t, err)
}

func TestSourceRejectsNonFinite(t *testing.T) {
	rows := []string{
		"0;NaN;1;300\n",
		"0;1;Inf;300\n",
		"0;-Inf;1;300\n",
		"0;1;1;NaN\n",
		"0;1;1;+Inf\n",
	}
	for _, row := range rows {
		_, err := NewSource(strings.NewReader("frame;x;y;area\n" + row))
		assert.Error(t, err, row)
	}
}

func TestSourceHonorsContext(t *testing.T) {
	source, err := NewSource(strings.NewReader(recording))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectorFiltersByArea(t *testing.T) {
	source, err := NewSource(strings.NewReader(recording))
	require.NoError(t, err)
	frame, err := source.Next(context.Background())
	require.NoError(t, err)

	blobs, err := NewDetector().Detect(frame, 200, 1500)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, mot.NewPoint(5, 5), blobs[0].Center)
	assert.Equal(t, 300.0, blobs[0].Area)
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)
	require.NoError(t, writer.WriteFrame(0, []detect.Blob{{Center: mot.NewPoint(1.5, 2), Area: 250}}))
	require.NoError(t, writer.WriteFrame(1, nil))
	require.NoError(t, writer.WriteFrame(2, []detect.Blob{{Center: mot.NewPoint(3, 4), Area: 500}, {Center: mot.NewPoint(7, 8), Area: 600}}))
	require.NoError(t, writer.Flush())

	source, err := NewSource(&buf)
	require.NoError(t, err)
	require.Equal(t, 3, source.Len())
	frames := make([]Frame, 0, 3)
	for {
		frame, err := source.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		frames = append(frames, frame)
	}
	assert.Equal(t, []detect.Blob{{Center: mot.NewPoint(1.5, 2), Area: 250}}, frames[0].Blobs)
	assert.Empty(t, frames[1].Blobs)
	assert.Equal(t, []mot.Point{mot.NewPoint(3, 4), mot.NewPoint(7, 8)}, detect.Centers(frames[2].Blobs))
}

func TestRecordingDetector(t *testing.T) {
	source, err := NewSource(strings.NewReader(recording))
	require.NoError(t, err)

	var buf bytes.Buffer
	writer := NewWriter(&buf)
	var det detect.Detector[Frame] = NewRecordingDetector[Frame](NewDetector(), writer)
	for {
		frame, err := source.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		_, err = det.Detect(frame, 200, 1500)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Flush())

	// Only blobs within area bounds are recorded
	assert.Equal(t, "frame;x;y;area\n0;5;5;300\n1;;;\n2;10;11;400\n3;;;\n", buf.String())
}
