package stylist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"closetapi/services"
)

type ReplyKind string

const (
	ReplyText     ReplyKind = "text"
	ReplyQuestion ReplyKind = "question"
	ReplyOutfit   ReplyKind = "outfit"
)

type Reply struct {
	Kind   ReplyKind
	Text   string
	Outfit []uint
}

// OutfitIDs accepts ids as JSON numbers or numeric strings.
type OutfitIDs []uint

func (ids *OutfitIDs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(OutfitIDs, 0, len(raw))
	for _, r := range raw {
		id, err := parseItemID(r)
		if err != nil {
			return err
		}
		out = append(out, id)
	}
	*ids = out
	return nil
}

func parseItemID(r json.RawMessage) (uint, error) {
	var n uint64
	if err := json.Unmarshal(r, &n); err == nil {
		return uint(n), nil
	}
	var s string
	if err := json.Unmarshal(r, &s); err != nil {
		return 0, fmt.Errorf("item id %s is neither a number nor a string", r)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("item id %q is not numeric", s)
	}
	return uint(n), nil
}

func isNull(r json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(r), []byte("null"))
}

// ParseCompletion turns completion text into a reply. Anything that is not one
// of the two recognised shapes comes back as ReplyText carrying the raw content.
func ParseCompletion(content string) Reply {
	raw := Reply{Kind: ReplyText, Text: content}

	object, ok := services.ExtractJSONObject(content)
	if !ok {
		return raw
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(object), &fields); err != nil {
		return raw
	}

	if q, ok := fields["question"]; ok && !isNull(q) {
		var question string
		if err := json.Unmarshal(q, &question); err != nil {
			return raw
		}
		return Reply{Kind: ReplyQuestion, Text: question}
	}

	if o, ok := fields["outfit"]; ok && !isNull(o) {
		var ids OutfitIDs
		if err := json.Unmarshal(o, &ids); err != nil {
			return raw
		}
		commentary := DefaultCommentary
		if c, ok := fields["commentary"]; ok {
			var text string
			if json.Unmarshal(c, &text) == nil && strings.TrimSpace(text) != "" {
				commentary = text
			}
		}
		return Reply{Kind: ReplyOutfit, Text: commentary, Outfit: []uint(ids)}
	}

	return raw
}
