// Package replay reads and writes recorded per-frame detections.
//
// Format is semicolon-separated CSV with header "frame;x;y;area". Every row is one blob.
// A row with empty x, y and area marks a frame without blobs; frames missing from
// the file are replayed as frames without blobs too. Frame indices must not decrease.
package replay

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/LdDl/beecount/detect"
	"github.com/LdDl/beecount/mot"
)

var header = []string{"frame", "x", "y", "area"}

// Frame holds recorded blobs of a single frame
type Frame struct {
	Index int
	Blobs []detect.Blob
}

// Source replays recorded frames. It implements detect.Source[Frame]
type Source struct {
	frames []Frame
	next   int
	closer io.Closer
}

// Open reads recorded detections from file
func Open(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open detections file %s", path)
	}
	source, err := NewSource(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "Can't read detections file %s", path)
	}
	source.closer = file
	return source, nil
}

// NewSource reads every recorded frame from reader
func NewSource(reader io.Reader) (*Source, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = ';'
	csvReader.FieldsPerRecord = len(header)
	csvReader.TrimLeadingSpace = true

	frames := make([]Frame, 0)
	line := 0
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "Can't parse CSV")
		}
		line++
		if line == 1 && strings.EqualFold(record[0], header[0]) {
			continue
		}
		index, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, errors.Wrapf(err, "Bad frame index on line %d", line)
		}
		if index < 0 {
			return nil, errors.Errorf("Negative frame index %d on line %d", index, line)
		}
		last := len(frames) - 1
		if last >= 0 && index < frames[last].Index {
			return nil, errors.Errorf("Frame index %d on line %d goes back from %d", index, line, frames[last].Index)
		}
		// Fill gaps with empty frames
		for expected := len(frames); expected <= index; expected++ {
			frames = append(frames, Frame{Index: expected, Blobs: []detect.Blob{}})
		}
		if record[1] == "" && record[2] == "" && record[3] == "" {
			continue
		}
		blob, err := parseBlob(record)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad blob on line %d", line)
		}
		frames[index].Blobs = append(frames[index].Blobs, blob)
	}
	return &Source{
		frames: frames,
	}, nil
}

func parseBlob(record []string) (detect.Blob, error) {
	x, err := strconv.ParseFloat(record[1], 64)
	if err != nil {
		return detect.Blob{}, errors.Wrap(err, "x")
	}
	y, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return detect.Blob{}, errors.Wrap(err, "y")
	}
	area, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return detect.Blob{}, errors.Wrap(err, "area")
	}
	center := mot.NewPoint(x, y)
	if !center.IsFinite() || math.IsNaN(area) || math.IsInf(area, 0) {
		return detect.Blob{}, errors.Errorf("non-finite blob %s with area %v", center, area)
	}
	return detect.Blob{Center: center, Area: area}, nil
}

// Len returns number of recorded frames
func (source *Source) Len() int {
	return len(source.frames)
}

// Next returns the next recorded frame or io.EOF
func (source *Source) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if source.next >= len(source.frames) {
		return Frame{}, io.EOF
	}
	frame := source.frames[source.next]
	source.next++
	return frame, nil
}

// Close releases underlying file if any
func (source *Source) Close() error {
	if source.closer == nil {
		return nil
	}
	return source.closer.Close()
}

// Detector filters recorded blobs by area. It implements detect.Detector[Frame]
type Detector struct{}

// NewDetector creates replay detector
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns recorded blobs within area bounds in recorded order
func (det *Detector) Detect(frame Frame, minArea, maxArea float64) ([]detect.Blob, error) {
	blobs := make([]detect.Blob, 0, len(frame.Blobs))
	for _, blob := range frame.Blobs {
		if detect.InBounds(blob.Area, minArea, maxArea) {
			blobs = append(blobs, blob)
		}
	}
	return blobs, nil
}
