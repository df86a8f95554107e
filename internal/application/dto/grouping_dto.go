package dto

// GroupRequest body para POST /api/groupings.
type GroupRequest struct {
	SourceIDs []string `json:"source_ids"`
	Target    string   `json:"target,omitempty"`
}

// NumberingRequest body para POST /api/numbering/next.
type NumberingRequest struct {
	Kind   string `json:"kind"`
	Series string `json:"series,omitempty"`
}

// NumberingResponse número emitido.
type NumberingResponse struct {
	Number string `json:"number"`
}
