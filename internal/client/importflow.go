package client

import (
	"fmt"
	"net/http"
	"strings"
)

// Import flow states. Completed, Cancelled and Failed are terminal.
type FlowState string

const (
	StateIdle         FlowState = "idle"
	StateFileSelected FlowState = "file_selected"
	StateUploading    FlowState = "uploading"
	StatePreviewed    FlowState = "previewed"
	StateConfirming   FlowState = "confirming"
	StateCompleted    FlowState = "completed"
	StateCancelled    FlowState = "cancelled"
	StateFailed       FlowState = "failed"
)

// MaxFileSize is the upload cap enforced locally before any request is made.
// The server applies the same limit.
const MaxFileSize = 10 << 20

// ImportFlow drives the upload → preview → confirm protocol for one CSV
// import. It validates locally before touching the network, holds the current
// preview, and tracks which transitions are legal from the current state.
type ImportFlow struct {
	client      *Client
	portfolioID string

	state        FlowState
	filename     string
	content      []byte
	preview      *ImportPreview
	createdCount int
	lastError    error
}

func NewImportFlow(c *Client, portfolioID string) *ImportFlow {
	return &ImportFlow{
		client:      c,
		portfolioID: portfolioID,
		state:       StateIdle,
	}
}

func (f *ImportFlow) State() FlowState        { return f.state }
func (f *ImportFlow) Preview() *ImportPreview { return f.preview }
func (f *ImportFlow) CreatedCount() int       { return f.createdCount }
func (f *ImportFlow) LastError() error        { return f.lastError }

// SelectFile validates the chosen file locally. A name without a .csv
// extension (any case) or a size over MaxFileSize is rejected without any
// backend call, and the machine stays where it was.
func (f *ImportFlow) SelectFile(filename string, content []byte) error {
	if f.state != StateIdle && f.state != StateFileSelected {
		return f.stateError("select a file")
	}

	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		f.lastError = &ValidationError{Message: "File must be a CSV"}
		return f.lastError
	}
	if len(content) > MaxFileSize {
		f.lastError = &ValidationError{Message: "File too large. Maximum size is 10MB"}
		return f.lastError
	}

	f.filename = filename
	f.content = content
	f.lastError = nil
	f.state = StateFileSelected
	return nil
}

// Upload submits the selected file and moves to Previewed on success. On any
// transport or server error the machine returns to FileSelected so the user
// can retry with the same or a different file.
func (f *ImportFlow) Upload() error {
	if f.state != StateFileSelected {
		return f.stateError("upload")
	}

	f.state = StateUploading
	preview, err := f.client.UploadCSV(f.portfolioID, f.filename, f.content)
	if err != nil {
		f.lastError = err
		f.state = StateFileSelected
		return err
	}

	f.preview = preview
	f.lastError = nil
	f.state = StatePreviewed
	return nil
}

// CanConfirm reports whether confirmation is allowed: a preview must be
// showing and it must contain at least one valid row.
func (f *ImportFlow) CanConfirm() bool {
	return f.state == StatePreviewed && f.preview != nil && f.preview.ValidRows > 0
}

// ConfirmLabel is the text for the confirm action, e.g. "Import 3 Positions".
func (f *ImportFlow) ConfirmLabel() string {
	if f.preview == nil {
		return "Import"
	}
	return fmt.Sprintf("Import %d Positions", f.preview.ValidRows)
}

// Confirm applies the previewed import. A preview with no valid rows is
// rejected locally without a request. If the server reports the import gone
// (unknown, already confirmed, or expired) the flow fails terminally; any
// other error returns to Previewed so the same import_id can be retried.
func (f *ImportFlow) Confirm() error {
	if f.state != StatePreviewed {
		return f.stateError("confirm")
	}
	if !f.CanConfirm() {
		f.lastError = &ValidationError{Message: "No valid rows to import"}
		return f.lastError
	}

	f.state = StateConfirming
	created, err := f.client.ConfirmImport(f.preview.ImportID)
	if err != nil {
		f.lastError = err
		if importGone(err) {
			f.state = StateFailed
		} else {
			f.state = StatePreviewed
		}
		return err
	}

	f.createdCount = created
	f.lastError = nil
	f.state = StateCompleted
	return nil
}

// Back discards the current selection or preview and returns to Idle. An
// unconfirmed import has no durable side effects, so no cancellation call is
// made; the server expires it on its own.
func (f *ImportFlow) Back() error {
	if f.state != StateFileSelected && f.state != StatePreviewed {
		return f.stateError("go back")
	}
	f.reset()
	f.state = StateIdle
	return nil
}

// Cancel abandons the flow entirely.
func (f *ImportFlow) Cancel() error {
	switch f.state {
	case StateCompleted, StateCancelled, StateFailed:
		return f.stateError("cancel")
	}
	f.reset()
	f.state = StateCancelled
	return nil
}

func (f *ImportFlow) reset() {
	f.filename = ""
	f.content = nil
	f.preview = nil
	f.lastError = nil
}

func (f *ImportFlow) stateError(action string) error {
	return &ValidationError{Message: fmt.Sprintf("Cannot %s while %s", action, f.state)}
}

func importGone(err error) bool {
	reqErr, ok := err.(*RequestError)
	if !ok {
		return false
	}
	switch reqErr.StatusCode {
	case http.StatusNotFound, http.StatusConflict, http.StatusGone:
		return true
	}
	return false
}
