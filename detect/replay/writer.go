package replay

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/LdDl/beecount/detect"
)

// Writer records per-frame blobs in replay format
type Writer struct {
	writer        *csv.Writer
	headerWritten bool
}

// NewWriter creates writer on top of w
func NewWriter(w io.Writer) *Writer {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = ';'
	return &Writer{
		writer: csvWriter,
	}
}

// WriteFrame appends blobs of a frame. Frame without blobs is written as a marker row
func (w *Writer) WriteFrame(index int, blobs []detect.Blob) error {
	if !w.headerWritten {
		if err := w.writer.Write(header); err != nil {
			return errors.Wrap(err, "Can't write header")
		}
		w.headerWritten = true
	}
	frame := strconv.Itoa(index)
	if len(blobs) == 0 {
		if err := w.writer.Write([]string{frame, "", "", ""}); err != nil {
			return errors.Wrapf(err, "Can't write frame %d", index)
		}
		return nil
	}
	for _, blob := range blobs {
		record := []string{
			frame,
			strconv.FormatFloat(blob.Center.X, 'f', -1, 64),
			strconv.FormatFloat(blob.Center.Y, 'f', -1, 64),
			strconv.FormatFloat(blob.Area, 'f', -1, 64),
		}
		if err := w.writer.Write(record); err != nil {
			return errors.Wrapf(err, "Can't write frame %d", index)
		}
	}
	return nil
}

// Flush writes buffered rows
func (w *Writer) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

// RecordingDetector passes blobs of the wrapped detector through and writes them to Writer.
// Frames are numbered in call order starting from zero.
type RecordingDetector[F any] struct {
	inner  detect.Detector[F]
	writer *Writer
	frame  int
}

// NewRecordingDetector wraps detector. Caller flushes the writer
func NewRecordingDetector[F any](inner detect.Detector[F], writer *Writer) *RecordingDetector[F] {
	return &RecordingDetector[F]{
		inner:  inner,
		writer: writer,
	}
}

// Detect runs the wrapped detector and records its output
func (det *RecordingDetector[F]) Detect(frame F, minArea, maxArea float64) ([]detect.Blob, error) {
	blobs, err := det.inner.Detect(frame, minArea, maxArea)
	if err != nil {
		return nil, err
	}
	if err := det.writer.WriteFrame(det.frame, blobs); err != nil {
		return nil, err
	}
	det.frame++
	return blobs, nil
}
