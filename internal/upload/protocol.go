package upload

// Routing headers sent with every upload.
const (
	HeaderOriginalFilename = "X-Original-Filename"
	HeaderFileType         = "X-File-Type"
	HeaderPathInProject    = "X-File-Path-In-Project"
	HeaderRequestID        = "X-Request-ID"
)

// File types understood by the receiver.
const (
	FileTypeMergedGraph = "merged_graph"
	FileTypeSource      = "source_file"
)

// Body encodings.
const (
	EncodingRaw    = "raw"
	EncodingBase64 = "base64"
)

// StatusReceived is the only status a receiver answers with after persisting a payload.
const StatusReceived = "received_and_processed"

// Envelope wraps file content as base64 inside a JSON document.
type Envelope struct {
	FileContentBase64 string `json:"file_content_base64"`
	OriginalFilename  string `json:"original_filename"`
	FileType          string `json:"file_type,omitempty"`
	FilePathInProject string `json:"file_path_in_project,omitempty"`
}

// Response is the receiver's answer.
type Response struct {
	Status        string `json:"status"`
	SavedFilename string `json:"saved_filename,omitempty"`
	Size          int64  `json:"size,omitempty"`
	Message       string `json:"message,omitempty"`
}
