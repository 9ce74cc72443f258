// Package mog2 finds moving blobs on video frames with OpenCV (via gocv):
// MOG2 background subtraction, binarization, morphological open+close,
// external contours, contour area filter, fitted ellipse centre.
// Background model should be warmed up with detect.Warm before tracking.
package mog2

import (
	"context"
	"image"
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/LdDl/beecount/detect"
	"github.com/LdDl/beecount/mot"
)

// Config holds background subtractor configuration
type Config struct {
	// Number of frames which form background model. Default 2000
	History int
	// Threshold on squared Mahalanobis distance between pixel and the model. Default 64
	VarThreshold float64
	// Shadows are marked gray in the mask and dropped by binarization. Default true
	DetectShadows bool
	// Size of square structuring element for open+close. Default 3
	KernelSize int
	// Frames used to build background model before tracking. Zero disables warm-up. Default 2000
	LearnFrames int
}

// DefaultConfig returns default detector configuration
func DefaultConfig() Config {
	return Config{
		History:       2000,
		VarThreshold:  64,
		DetectShadows: true,
		KernelSize:    3,
		LearnFrames:   2000,
	}
}

// minEllipsePoints is the least contour size accepted by ellipse fitting
const minEllipsePoints = 5

// Detector implements detect.Detector[gocv.Mat] and detect.Learner[gocv.Mat]
type Detector struct {
	subtractor gocv.BackgroundSubtractorMOG2
	kernel     gocv.Mat
	mask       gocv.Mat
	binary     gocv.Mat
}

// NewDetector creates detector. Call Close to release OpenCV resources
func NewDetector(cfg Config) *Detector {
	kernelSize := cfg.KernelSize
	if kernelSize <= 0 {
		kernelSize = 3
	}
	return &Detector{
		subtractor: gocv.NewBackgroundSubtractorMOG2WithParams(cfg.History, cfg.VarThreshold, cfg.DetectShadows),
		kernel:     gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize)),
		mask:       gocv.NewMat(),
		binary:     gocv.NewMat(),
	}
}

// Learn updates background model with the frame
func (det *Detector) Learn(frame gocv.Mat) error {
	if frame.Empty() {
		return errors.New("Empty frame")
	}
	return errors.Wrap(det.subtractor.Apply(frame, &det.mask), "Can't apply background subtractor")
}

// Detect updates background model with the frame and returns centroids of foreground blobs
// whose contour area lies within [minArea, maxArea]. Blobs are ordered as OpenCV returns contours.
func (det *Detector) Detect(frame gocv.Mat, minArea, maxArea float64) ([]detect.Blob, error) {
	if frame.Empty() {
		return nil, errors.New("Empty frame")
	}
	if err := det.subtractor.Apply(frame, &det.mask); err != nil {
		return nil, errors.Wrap(err, "Can't apply background subtractor")
	}
	// Only definite foreground (255) survives, shadows (127) are dropped
	gocv.Threshold(det.mask, &det.binary, 254, 255, gocv.ThresholdBinary)
	gocv.MorphologyEx(det.binary, &det.binary, gocv.MorphOpen, det.kernel)
	gocv.MorphologyEx(det.binary, &det.binary, gocv.MorphClose, det.kernel)

	contours := gocv.FindContours(det.binary, gocv.RetrievalExternal, gocv.ChainApproxTC89L1)
	defer contours.Close()

	blobs := make([]detect.Blob, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if !detect.InBounds(area, minArea, maxArea) {
			continue
		}
		blobs = append(blobs, detect.Blob{
			Center: contourCenter(contour),
			Area:   area,
		})
	}
	return blobs, nil
}

// contourCenter is the centre of the fitted ellipse. Contours too short for
// ellipse fitting fall back to the centre of the minimum area rectangle
func contourCenter(contour gocv.PointVector) mot.Point {
	if contour.Size() >= minEllipsePoints {
		return mot.NewPointFrom(gocv.FitEllipse(contour).Center)
	}
	return mot.NewPointFrom(gocv.MinAreaRect(contour).Center)
}

// Close releases OpenCV resources
func (det *Detector) Close() error {
	det.mask.Close()
	det.binary.Close()
	det.kernel.Close()
	return det.subtractor.Close()
}

// VideoSource reads frames from a video file. It implements detect.Source[gocv.Mat].
// Returned frame is reused by the next call of Next.
type VideoSource struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// OpenVideo opens video file
func OpenVideo(path string) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open video %s", path)
	}
	return &VideoSource{
		capture: capture,
		frame:   gocv.NewMat(),
	}, nil
}

// Next reads next frame. io.EOF when the video is over
func (source *VideoSource) Next(ctx context.Context) (gocv.Mat, error) {
	if err := ctx.Err(); err != nil {
		return gocv.Mat{}, err
	}
	if ok := source.capture.Read(&source.frame); !ok || source.frame.Empty() {
		return gocv.Mat{}, io.EOF
	}
	return source.frame, nil
}

// Close releases capture and frame buffer
func (source *VideoSource) Close() error {
	source.frame.Close()
	return source.capture.Close()
}
