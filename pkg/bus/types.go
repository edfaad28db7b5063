package bus

// Submission is raw ingress input before classification: free text plus
// an optional opaque media reference.
type Submission struct {
	Text       string `json:"text"`
	Attachment string `json:"attachment,omitempty"`
}
