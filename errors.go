package sitesnap

import "errors"

// Sentinel errors for library operations.
var (
	// Input errors abort a run before anything is scheduled.
	ErrReadWorklist      = errors.New("failed to read worklist")
	ErrMalformedWorklist = errors.New("malformed worklist")
	ErrEmptyName         = errors.New("record name cannot be empty")
	ErrEmptyAddress      = errors.New("record address cannot be empty")

	// ErrRendererFault marks navigation, timeout, and crash errors that the
	// capture task retries. Renderer implementations wrap it.
	ErrRendererFault  = errors.New("renderer fault")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrScreenshot     = errors.New("failed to capture screenshot")
	ErrPoolClosed     = errors.New("renderer pool is closed")

	// Storage errors are fatal to a run.
	ErrArtifactWrite = errors.New("failed to write artifact")
	ErrAggregate     = errors.New("failed to aggregate result")

	ErrPDFExport = errors.New("PDF export failed")
)
