package scorer

// RequestOptions carries the optional AnalyzeComment fields
type RequestOptions struct {
	DoNotStore  bool   // Ask the service not to store the comment
	ClientToken string // Opaque token echoed back in the response
}

// BuildRequest builds the AnalyzeComment body for text. Each attribute gets an
// empty config entry; the service scores every key that is present.
func BuildRequest(text string, attrs []Attribute, opts RequestOptions) AnalyzeRequest {
	requested := make(map[Attribute]AttributeConfig, len(attrs))
	for _, attr := range attrs {
		requested[attr] = AttributeConfig{}
	}

	return AnalyzeRequest{
		Comment:             Comment{Text: text},
		Languages:           []string{requestLanguage},
		RequestedAttributes: requested,
		DoNotStore:          opts.DoNotStore,
		ClientToken:         opts.ClientToken,
	}
}
