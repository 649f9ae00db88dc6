package hub

import (
	"regexp"
	"strings"
)

// Kind is the JSON type a schema field expects. Numbers arrive as
// float64 after generic decoding.
type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// Field describes one expected entry of an inbound event payload.
type Field struct {
	Name     string
	Required bool
	Kind     Kind
	Check    func(v any) bool
	Reason   string
}

// Schema validates a decoded payload field by field, in declaration
// order, stopping at the first failure.
type Schema []Field

// Validate returns the reason of the first failing field, or "" when
// the payload is acceptable.
func (s Schema) Validate(data map[string]any) string {
	for _, f := range s {
		v, ok := data[f.Name]
		if !ok || v == nil {
			if f.Required {
				return f.Reason
			}
			continue
		}
		switch f.Kind {
		case KindString:
			if _, ok := v.(string); !ok {
				return f.Reason
			}
		case KindNumber:
			if _, ok := v.(float64); !ok {
				return f.Reason
			}
		}
		if f.Check != nil && !f.Check(v) {
			return f.Reason
		}
	}
	return ""
}

// positiveRoomID accepts JSON numbers that are positive integers.
func positiveRoomID(v any) bool {
	n, ok := v.(float64)
	return ok && n > 0 && n == float64(uint(n))
}

// roomIDFrom extracts a validated roomId field.
func roomIDFrom(data map[string]any) uint {
	n, _ := data["roomId"].(float64)
	return uint(n)
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeMessage strips HTML-like tags and surrounding whitespace.
// The result may be empty even when the input was not.
func SanitizeMessage(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

const maxMessageLength = 5000

var joinRoomSchema = Schema{
	{Name: "roomId", Required: true, Kind: KindNumber, Check: positiveRoomID, Reason: "Invalid room ID"},
}

var chatMessageSchema = Schema{
	{Name: "roomId", Required: true, Kind: KindNumber, Check: positiveRoomID, Reason: "Invalid room ID"},
	{Name: "message", Required: true, Kind: KindString, Check: func(v any) bool {
		// The length band applies to what would be stored, not the raw
		// body. Tag-heavy input may shrink under the limit, or to nothing.
		s, _ := v.(string)
		s = SanitizeMessage(s)
		return len(s) > 0 && len(s) <= maxMessageLength
	}, Reason: "Message must be between 1 and 5000 characters"},
}

var typingSchema = Schema{
	{Name: "roomId", Required: true, Kind: KindNumber, Check: positiveRoomID, Reason: "Invalid room ID"},
}
