package project

import "github.com/five82/reencode/internal/encoderdriver"

// ParallelEncoderTask is one unit of work handed to a parallel-encoder
// worker: a frame range to decode and encode, tied back to the scene it
// came from for result bookkeeping.
type ParallelEncoderTask struct {
	Index              int
	OriginalSceneIndex int
	StartFrame         uint64
	EndFrame           uint64
	Encoder            encoderdriver.EncoderConfig
	OutputPath         string
}

// Len returns the number of frames the task covers.
func (t ParallelEncoderTask) Len() uint64 {
	return t.EndFrame - t.StartFrame
}

// BuildTasks produces one task per scene not already covered by an existing
// output artifact, in scene order. exists is injected so callers can stub
// filesystem access in tests.
func BuildTasks(p *Project, outputFor func(sceneIndex int) string, exists func(path string) bool) []ParallelEncoderTask {
	var tasks []ParallelEncoderTask
	idx := 0
	for i, sc := range p.Scenes {
		outPath := outputFor(i)
		if exists != nil && exists(outPath) {
			continue
		}
		tasks = append(tasks, ParallelEncoderTask{
			Index:              idx,
			OriginalSceneIndex: i,
			StartFrame:         sc.StartFrame,
			EndFrame:           sc.EndFrame,
			Encoder:            p.EncoderFor(i),
			OutputPath:         outPath,
		})
		idx++
	}
	return tasks
}
