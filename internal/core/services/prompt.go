package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// snippetRunes bounds how much of each retrieved chunk reaches the prompt.
const snippetRunes = 400

// PromptInput is everything a reply prompt is built from.
// Masked must already have every PII value replaced by a token.
type PromptInput struct {
	Masked    string
	Customer  *domain.Customer
	Store     domain.Store
	Documents []domain.SearchResult
}

// BuildPrompt assembles the user prompt sent to the generator.
func BuildPrompt(preamble, instruction string, in PromptInput) string {
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Customer message (PII masked): %s\n\n", in.Masked)
	b.WriteString(customerLine(in.Customer))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Nearest store: %s (distance_m=%d). Inventory: %s. Offers: %s\n\n",
		in.Store.Name, in.Store.DistanceM,
		strings.Join(in.Store.Inventory, ", "), strings.Join(in.Store.Offers, ", "))
	b.WriteString("Relevant documents:\n")
	b.WriteString(documentsBlock(in.Documents))
	b.WriteString("\n\n")
	b.WriteString(instruction)

	return b.String()
}

func customerLine(c *domain.Customer) string {
	if c == nil {
		return ""
	}

	history := make([]string, len(c.History))
	for i, h := range c.History {
		count := h.Count
		if count <= 0 {
			count = 1
		}
		last := h.LastOrder
		if last == "" {
			last = "-"
		}
		history[i] = fmt.Sprintf("%s x%d (last:%s)", h.Item, count, last)
	}

	return fmt.Sprintf("Customer name: %s. Preferences: %s. History: %s.",
		c.Name, strings.Join(c.Preferences, ", "), strings.Join(history, "; "))
}

func documentsBlock(docs []domain.SearchResult) string {
	if len(docs) == 0 {
		return "None"
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("Source: %s — %s", d.Metadata.Source, truncateRunes(d.Text, snippetRunes))
	}
	return strings.Join(parts, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
