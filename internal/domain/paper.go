package domain

// Paper is a normalized arXiv record as returned by the search and
// abstract tools. Published is kept as the feed's timestamp string;
// clients render it, they do not compute with it.
type Paper struct {
	ID        string   `json:"arxiv_id"`
	Title     string   `json:"title"`
	Published string   `json:"published"`
	Authors   []string `json:"authors"`
	PDFLink   string   `json:"pdf_link,omitempty"`
	Summary   string   `json:"summary,omitempty"`
}
