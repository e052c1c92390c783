package taskname

const (
	// Recompute tasks
	RecomputeCreator = "recompute:creator"
	RecomputeAll     = "recompute:all"
)
