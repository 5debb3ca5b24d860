package model

import (
	"strconv"
)

// ThumbnailWidths are the fixed derivative widths generated for every image.
var ThumbnailWidths = []int{500, 250, 100}

// ThumbnailJob asks the worker to generate derivatives for one image record.
// It lives only on the queue until acknowledged.
type ThumbnailJob struct {
	FileID  FileID  `json:"fileId"`
	OwnerID OwnerID `json:"userId"`
}

// DerivativePath returns the deterministic blob path of an image derivative.
func DerivativePath(localPath string, width int) string {
	return localPath + "_" + strconv.Itoa(width)
}

// ParseThumbnailWidth returns the width for a size query value when it is
// one of ThumbnailWidths.
func ParseThumbnailWidth(size string) (int, bool) {
	if size == "" {
		return 0, false
	}
	width, err := strconv.Atoi(size)
	if err != nil {
		return 0, false
	}
	for _, w := range ThumbnailWidths {
		if w == width {
			return w, true
		}
	}
	return 0, false
}
