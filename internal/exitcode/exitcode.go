package exitcode

const (
	Success         = 0
	UsageError      = 1
	PreconditionErr = 2
	StoreConnError  = 3
	ImportError     = 4
	BuildError      = 5
	ExportError     = 6
	PartialSuccess  = 7
)
