package models

// ItemStatus tracks one file through a batch run.
type ItemStatus string

const (
	ItemPending            ItemStatus = "pending"
	ItemProcessing         ItemStatus = "processing"
	ItemSuccess            ItemStatus = "success"
	ItemError              ItemStatus = "error"
	ItemInsufficientCredit ItemStatus = "insufficient_credit"
)

// Terminal reports whether the status is final for this run.
func (s ItemStatus) Terminal() bool {
	switch s {
	case ItemSuccess, ItemError, ItemInsufficientCredit:
		return true
	}
	return false
}

// RunState is the batch lifecycle state machine. Transitions only move
// forward; a finished or abandoned run is discarded by a full reset.
type RunState string

const (
	RunSelecting  RunState = "selecting"
	RunUploaded   RunState = "uploaded"
	RunProcessing RunState = "processing"
	RunCompleted  RunState = "completed"
)

// BatchItem is the processing state of one uploaded file. Owned by the
// client session, mutated only by the batch processor, never persisted.
type BatchItem struct {
	Name          string
	PreviewPath   string
	Status        ItemStatus
	Message       string
	ExtractedText string
	Err           error
}
