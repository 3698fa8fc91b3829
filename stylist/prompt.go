package stylist

import (
	"encoding/json"
	"fmt"

	"closetapi/models"
	"closetapi/services"
)

const systemInstruction = `You are a personal stylist. The next message lists the user's closet as JSON: every item has an id, a type (top, bottom, dress, shoes, accessory, outerwear, bag) and descriptive attributes. It may also list last_outfit, the ids you proposed most recently.

Outfit rules:
- Always pick exactly one pair of shoes.
- A dress replaces the top and the bottom; never combine a dress with a top or a bottom.
- Without a dress, pick exactly one top and exactly one bottom.
- Accessories, outerwear and bags are optional and unlimited.
- Only use ids that appear in the closet.

Reply with ONLY one of these JSON objects and no other text:
{"question": "<a short clarifying question>"}
{"outfit": [<item id>, ...], "commentary": "<one or two sentences on why it works>"}

Ask a question when the occasion, weather or mood is unclear. Otherwise propose an outfit.`

type closetContext struct {
	Closet     []models.ClosetItem `json:"closet"`
	LastOutfit []uint              `json:"last_outfit,omitempty"`
}

// buildMessages lays out one request: instruction, closet context, prior transcript, new utterance.
func buildMessages(t turn) ([]services.ChatMessage, error) {
	closet := t.closet
	if closet == nil {
		closet = []models.ClosetItem{}
	}
	contextJSON, err := json.Marshal(closetContext{Closet: closet, LastOutfit: t.lastOutfit})
	if err != nil {
		return nil, fmt.Errorf("encode closet context: %w", err)
	}

	messages := make([]services.ChatMessage, 0, len(t.history)+3)
	messages = append(messages,
		services.ChatMessage{Role: services.RoleSystem, Content: systemInstruction},
		services.ChatMessage{Role: services.RoleSystem, Content: string(contextJSON)},
	)
	for _, m := range t.history {
		role := services.RoleAssistant
		if m.Sender == SenderUser {
			role = services.RoleUser
		}
		messages = append(messages, services.ChatMessage{Role: role, Content: m.Text})
	}
	messages = append(messages, services.ChatMessage{Role: services.RoleUser, Content: t.utterance})
	return messages, nil
}
