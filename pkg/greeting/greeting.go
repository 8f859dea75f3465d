// Package greeting supplies the canned welcome lines used when a session is
// created, and as the fallback when the RAG-generated greeting fails.
package greeting

import (
	"math/rand"
)

var pool = []string{
	"Hello! I'm your dedicated support assistant, happy to help! What can I do for you today?",
	"Welcome to Foodie! I'm the support assistant, ready to help with any issue. What do you need?",
	"Hi there! I can help you with returns, exchanges, or any product questions. Just tell me what you need!",
	"Hey! Great to see you! I'm your support assistant for orders and product issues. What can I do for you today?",
	"Hello! Thanks for choosing Foodie! I handle returns, exchanges and other service questions. Ask me anything!",
}

// Random picks one canned greeting.
func Random() string {
	return pool[rand.Intn(len(pool))]
}

// SmartPrompt is the question sent to the answer engine to produce a
// context-aware greeting for an existing session.
const SmartPrompt = "Hi, I just joined the chat. Please give me a professional, friendly greeting and briefly explain what you can help me with."
