package models

// ResponseType is the kind of a worker response.
type ResponseType string

const (
	ResponseResult ResponseType = "result"
	ResponseError  ResponseType = "error"
)

// Request is what the coordinator hands to the diff worker.
type Request struct {
	JobID   int64   `json:"jobId"`
	TextA   string  `json:"text_a"`
	TextB   string  `json:"text_b"`
	TokensA []Token `json:"tokens_a"`
	TokensB []Token `json:"tokens_b"`
	Mode    Mode    `json:"mode"`
}

// Response is the single terminal message the worker sends back for a request.
type Response struct {
	Type           ResponseType  `json:"type"`
	JobID          int64         `json:"jobId"`
	TextDiff       []DiffSegment `json:"textDiff"`
	RemovedIndexes []int         `json:"removedIndexes"`
	AddedIndexes   []int         `json:"addedIndexes"`
	Message        string        `json:"message,omitempty"`
}

// Result is an accepted comparison, packaged for the rendering side.
type Result struct {
	JobID    int64         `json:"jobId"`
	Mode     Mode          `json:"mode"`
	Advisory string        `json:"advisory,omitempty"`
	TextDiff []DiffSegment `json:"textDiff"`
	Changes  ChangeSet     `json:"changes"`
	Stats    WordStats     `json:"stats"`
	Baseline *Extraction   `json:"baseline"`
	Revised  *Extraction   `json:"revised"`
}
