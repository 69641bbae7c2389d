package constants

// TabState is the coarse progress of one form tab.
type TabState string

// Stable values (returned over the API as-is).
const (
	TabStateEmpty             TabState = "empty"
	TabStatePartiallyFilled   TabState = "partially_filled"
	TabStateMandatoryComplete TabState = "mandatory_complete"
	TabStateAIEnhanced        TabState = "ai_enhanced"
)

// DocumentKind is the classification of an uploaded document.
type DocumentKind string

const (
	KindSingleImage   DocumentKind = "single_image"
	KindPDFWithImages DocumentKind = "pdf_with_images"
	KindPDFWithText   DocumentKind = "pdf_with_text"
	KindPlainText     DocumentKind = "plain_text"    // txt, csv
	KindWordDocument  DocumentKind = "word_document" // docx
)

// NeedsCaptioning reports whether the kind is converted to text by an LLM caption.
func (k DocumentKind) NeedsCaptioning() bool {
	return k == KindSingleImage || k == KindPDFWithImages
}
