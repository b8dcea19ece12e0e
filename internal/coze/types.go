// Package coze provides an HTTP client for a Coze workflow endpoint that
// translates sentences and splits each translation into display-sized
// fragments in one call.
package coze

// TextItem is one sentence sent to the workflow.
type TextItem struct {
	Text string `json:"text"`
}

// Result is the workflow output for one input sentence.
type Result struct {
	SplitSentences []string `json:"split_sentences"`
}

// runRequest represents the request body for the workflow endpoint.
type runRequest struct {
	MaxLength int        `json:"max_length"`
	Texts     []TextItem `json:"texts"`
}

// runResponse represents the response from the workflow endpoint.
type runResponse struct {
	Results []Result `json:"results"`
	Error   string   `json:"error,omitempty"`
	Msg     string   `json:"msg,omitempty"`
}
