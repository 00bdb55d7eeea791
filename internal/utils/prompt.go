package utils

import "fmt"

// IntentSystemPrompt is sent as the system message where the provider supports one
const IntentSystemPrompt = "You are an intent classification system for direct messages sent to a business. Respond only with JSON."

const intentPromptFormat = `Classify the intent of the following direct message sent to a business account.
Choose exactly one label:
- Casual: greetings, small talk, compliments
- Intent: questions about products, availability, prices or delivery
- Desire: expressing that they want or like a product without asking to buy
- Order: placing, changing or tracking an order
- Collaboration: partnership, sponsorship or promotion proposals
If none of these apply, use None.

Respond with a JSON object containing:
- label: string (one of Casual, Intent, Desire, Order, Collaboration, None)

Message:
%s

Respond only with the JSON object and nothing else.`

// IntentResponse represents the structured response expected from the LLM
type IntentResponse struct {
	Label string `json:"label"`
}

// BuildIntentPrompt formats the classification prompt for a message
func BuildIntentPrompt(message string) string {
	return fmt.Sprintf(intentPromptFormat, message)
}
