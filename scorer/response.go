package scorer

import "fmt"

// newUnavailableScores returns one Unavailable entry per attribute
func newUnavailableScores(attrs []Attribute) map[Attribute]Score {
	scores := make(map[Attribute]Score, len(attrs))
	for _, attr := range attrs {
		scores[attr] = Unavailable
	}
	return scores
}

// ExtractScores reads attributeScores[attr].summaryScore.value for every
// attribute. A nil response means the call failed and every entry stays
// Unavailable. The returned map always has one entry per attribute, even
// when an error is returned; entries read before the first problem are
// filled, the rest stay Unavailable.
func ExtractScores(resp *AnalyzeResponse, attrs []Attribute) (map[Attribute]Score, error) {
	scores := newUnavailableScores(attrs)
	if resp == nil {
		return scores, nil
	}

	var firstErr error
	for _, attr := range attrs {
		value, err := summaryValue(resp, attr)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		scores[attr] = Score{Value: value, Available: true}
	}

	return scores, firstErr
}

func summaryValue(resp *AnalyzeResponse, attr Attribute) (float64, error) {
	entry, ok := resp.AttributeScores[attr]
	if !ok {
		return 0, &MalformedResponseError{Attribute: attr, Path: fmt.Sprintf("attributeScores.%s missing", attr)}
	}
	if entry.SummaryScore == nil {
		return 0, &MalformedResponseError{Attribute: attr, Path: fmt.Sprintf("attributeScores.%s.summaryScore missing", attr)}
	}
	if entry.SummaryScore.Value == nil {
		return 0, &MalformedResponseError{Attribute: attr, Path: fmt.Sprintf("attributeScores.%s.summaryScore.value missing", attr)}
	}

	value := *entry.SummaryScore.Value
	if value < 0 || value > 1 {
		return 0, &MalformedResponseError{
			Attribute: attr,
			Path:      fmt.Sprintf("attributeScores.%s.summaryScore.value %v outside [0,1]", attr, value),
		}
	}
	return value, nil
}
