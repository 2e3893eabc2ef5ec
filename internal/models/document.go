package models

type InputRole string

const (
	RoleCV             InputRole = "cv"
	RoleJobDescription InputRole = "job_description"
)

func ParseInputRole(s string) (InputRole, bool) {
	switch InputRole(s) {
	case RoleCV, RoleJobDescription:
		return InputRole(s), true
	}
	return "", false
}

type IngestState string

const (
	IngestEmpty         IngestState = "empty"
	IngestPasted        IngestState = "pasted"
	IngestUploading     IngestState = "uploading"
	IngestParsing       IngestState = "parsing"
	IngestReady         IngestState = "ready"
	IngestAwaitingPaste IngestState = "awaiting_manual_paste"
	IngestFailed        IngestState = "failed"
)

// InputDocument is the normalized form of one user input (CV or job
// description). RawText is the authoritative content for every downstream
// stage; SourceLabel is display-only and never re-derives RawText.
type InputDocument struct {
	RawText     string      `json:"raw_text"`
	SourceLabel string      `json:"source_label,omitempty"`
	State       IngestState `json:"state"`
	Message     string      `json:"message,omitempty"`
}

func NewEmptyInput() *InputDocument {
	return &InputDocument{State: IngestEmpty}
}

// Usable reports whether the document can feed a generation stage.
func (d *InputDocument) Usable() bool {
	return (d.State == IngestReady || d.State == IngestPasted) && d.RawText != ""
}

// Processing reports whether ingestion is still in flight for this document.
func (d *InputDocument) Processing() bool {
	return d.State == IngestUploading || d.State == IngestParsing
}
