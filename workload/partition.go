package workload

import "github.com/asyncps/psengine/progress"

// Partition is a (file, part_id, num_parts, phase) triple naming a
// worker-level unit of work. FileIndex is the file's position in the
// phase's file list, carried alongside FilePath so a worker configured to
// resolve its own local copy of the data can look the file up by position
// instead of trusting the scheduler's FilePath.
type Partition struct {
	ID        int
	FilePath  string
	FileIndex int
	PartID    int
	NumParts  int
	Phase     progress.Phase
}
