package project

import "errors"

var (
	errScenesNotZeroStart  = errors.New("scenes: first scene must start at frame 0")
	errScenesEmptyInterval = errors.New("scenes: start_frame must be less than end_frame")
	errScenesNotContiguous = errors.New("scenes: scenes must be contiguous and sorted by start_frame")
	errScenesDoNotCoverClip = errors.New("scenes: last scene must end at clip frame_count")
)
