package models

// Page is one page of an uploaded document. Index is 1-based and
// follows the page's position in the original file, including pages
// that yielded no text.
type Page struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// IndexEntry is a stored vector together with the text it was
// computed from.
type IndexEntry struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
	Text   string    `json:"text"`
}

// Match is a single query hit. Matches are ordered nearest-first by
// the index's distance metric.
type Match struct {
	Entry    IndexEntry `json:"entry"`
	Distance float64    `json:"distance"`
}

// Rating is the rubric verdict for a generated question.
type Rating string

const (
	RatingAcceptable       Rating = "Acceptable"
	RatingNeedsImprovement Rating = "Needs Improvement"
	RatingRejected         Rating = "Rejected"
)

// RubricEvaluation is the model's assessment of one question.
type RubricEvaluation struct {
	Narrative string `json:"narrative"`
	Rating    Rating `json:"rating"`
}

// VerificationResult is the model's judgment of a user answer.
type VerificationResult struct {
	Narrative string `json:"narrative"`
}

// IngestResult summarizes one processed upload.
type IngestResult struct {
	SessionID    string   `json:"session_id"`
	PagesIndexed int      `json:"pages_indexed"`
	Questions    []string `json:"questions"`
}
