package models

// BasicResponse is the body of simple status endpoints
type BasicResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// VocabResponse is the body of GET /vocab
type VocabResponse struct {
	Vocab []string `json:"vocab"`
}

// TopicsResponse is the body of GET /topics. Accuracy is null when there are
// no held-out documents to score.
type TopicsResponse struct {
	Anchors  [][]string `json:"anchors"`
	Topics   [][]string `json:"topics"`
	Accuracy *float64   `json:"accuracy"`
	Warnings int        `json:"warnings,omitempty"`
}
