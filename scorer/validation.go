package scorer

import (
	"fmt"
	"strings"
)

// allowedAttributes is the closed set the service accepts from this client
var allowedAttributes = []Attribute{
	Toxicity,
	IdentityAttack,
	Insult,
	Threat,
	SexuallyExplicit,
}

// AllowedAttributes returns a copy of the supported attributes
func AllowedAttributes() []Attribute {
	out := make([]Attribute, len(allowedAttributes))
	copy(out, allowedAttributes)
	return out
}

// IsAllowed reports whether attr belongs to the supported set
func IsAllowed(attr Attribute) bool {
	for _, a := range allowedAttributes {
		if a == attr {
			return true
		}
	}
	return false
}

// ValidateAttribute checks a single attribute name
func ValidateAttribute(attr Attribute) error {
	if !IsAllowed(attr) {
		return fmt.Errorf("%w: %s", ErrInvalidAttribute, attr)
	}
	return nil
}

// ValidateAttributes checks a replacement set. It stops at the first
// unsupported name so nothing is partially applied.
func ValidateAttributes(attrs []Attribute) error {
	if len(attrs) == 0 {
		return ErrEmptyAttributeSet
	}
	for _, attr := range attrs {
		if err := ValidateAttribute(attr); err != nil {
			return err
		}
	}
	return nil
}

// normalizeAttributes returns an independent, duplicate-free copy of attrs
// preserving first-seen order
func normalizeAttributes(attrs []Attribute) []Attribute {
	out := make([]Attribute, 0, len(attrs))
	seen := make(map[Attribute]struct{}, len(attrs))
	for _, attr := range attrs {
		if _, dup := seen[attr]; dup {
			continue
		}
		seen[attr] = struct{}{}
		out = append(out, attr)
	}
	return out
}

// ParseAttributes converts a comma separated list such as
// "TOXICITY, threat" into attributes. Names are upper-cased and trimmed;
// empty elements are skipped. The result is not validated.
func ParseAttributes(list string) []Attribute {
	var attrs []Attribute
	for _, part := range strings.Split(list, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		attrs = append(attrs, Attribute(name))
	}
	return attrs
}

// containsAttribute reports whether attrs holds attr
func containsAttribute(attrs []Attribute, attr Attribute) bool {
	for _, a := range attrs {
		if a == attr {
			return true
		}
	}
	return false
}
