package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sender identifies who wrote a chat message.
type Sender string

// Chat senders.
const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Fixed assistant texts.
const (
	ChatWelcome = "👋 Hi there! I'm your AI-powered Bar Cart Assistant. Ask me about cocktails you can make " +
		"with your current inventory, or get recommendations based on spirits and flavors you enjoy!"
	ChatFallback   = "I'm sorry, I couldn't process your request at this moment. Please try again later."
	ChatNoResponse = "No clear response received"
)

// ChatSuggestions are the prompts the input box cycles through.
var ChatSuggestions = []string{
	"Can I make a classic mai tai?",
	"How much would making an old fashioned with my Makers Mark cost?",
	"Do I have any london dry gins?",
	"What is a good drink I can make for fall weather?",
	"What cocktails can I make with bourbon?",
	"Recommend a refreshing summer drink",
	"How do I make a perfect Manhattan?",
	"What's a good non-alcoholic alternative to a mojito?",
	"What pairs well with mezcal?",
	"Can you suggest a fancy cocktail for a dinner party?",
	"What's an easy 3-ingredient cocktail to make?",
}

// ChatMessage is one entry in a user's chat transcript.
// While a reply is being revealed Text holds the visible prefix and
// FullText the complete answer.
type ChatMessage struct {
	Timestamp   time.Time `json:"timestamp"`
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Text        string    `json:"text"`
	FullText    string    `json:"full_text,omitempty"`
	Sender      Sender    `json:"sender"`
	IsStreaming bool      `json:"is_streaming"`
}

// ContextBottle is the reduced shelf view sent to the inference endpoint.
// Cost is omitted when zero.
type ContextBottle struct {
	Cost     *float64 `json:"cost,omitempty"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
}

// NewContextBottle builds a ContextBottle, dropping a zero cost.
func NewContextBottle(name, category string, cost decimal.Decimal) ContextBottle {
	cb := ContextBottle{Name: name, Category: category}
	if !cost.IsZero() {
		c := cost.InexactFloat64()
		cb.Cost = &c
	}
	return cb
}

// TurnState is the per-user chat turn state.
type TurnState string

// Turn states. A turn moves idle -> awaiting_response -> streaming -> idle.
const (
	TurnIdle             TurnState = "idle"
	TurnAwaitingResponse TurnState = "awaiting_response"
	TurnStreaming        TurnState = "streaming"
)
