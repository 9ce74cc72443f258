// Command beecount counts objects entering and leaving a rectangular region
// of a video (or of recorded detections) by tracking moving blobs.
package main

func main() {
	Execute()
}
