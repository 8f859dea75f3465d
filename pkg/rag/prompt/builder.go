package prompt

import (
	"strings"
)

// SupportBuilder assembles the customer-service prompt from retrieved
// policy passages and the user's question.
type SupportBuilder struct {
	passages []string
	query    string
}

// NewSupportBuilder creates a prompt builder for one chat turn.
func NewSupportBuilder(passages []string, query string) *SupportBuilder {
	return &SupportBuilder{
		passages: passages,
		query:    query,
	}
}

// Build creates the final prompt string handed to the LLM.
func (b *SupportBuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *SupportBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	if len(b.passages) == 0 {
		return
	}

	prompt.WriteString("<reference_material>\n")
	for i, passage := range b.passages {
		if i > 0 {
			prompt.WriteString("\n---\n")
		}
		prompt.WriteString(passage)
	}
	prompt.WriteString("\n</reference_material>\n\n")
}

func (b *SupportBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a friendly customer service assistant for the Foodie food platform.\n")
	prompt.WriteString("Your goal is to resolve the customer's question about orders, returns, exchanges and products using the company policies provided.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *SupportBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	prompt.WriteString("Understand what the customer actually needs:\n")
	prompt.WriteString("- If they ask about eligibility (refund, exchange, cancellation), check the policy conditions and state the outcome clearly\n")
	prompt.WriteString("- If they ask about a procedure, walk them through the steps in order\n")
	prompt.WriteString("- If they ask about timelines or fees, quote the concrete numbers from the policy\n")
	prompt.WriteString("\n")
	prompt.WriteString("Response principles:\n")
	prompt.WriteString("1. Base your answer strictly on the reference material provided\n")
	prompt.WriteString("2. Be warm and professional; the customer may be frustrated\n")
	prompt.WriteString("3. Never invent policy terms; if the material doesn't cover the question, say so and offer to escalate to a human agent\n")
	prompt.WriteString("4. Keep the answer focused; don't recite unrelated policy sections\n")
	prompt.WriteString("</guidelines>\n\n")
}

func (b *SupportBuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<customer_question>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</customer_question>\n\n")
	prompt.WriteString("Now provide your complete response based on the reference material:")
}
