package prompt

import (
	"strings"
	"testing"
)

func TestSupportBuilderIncludesPassagesAndQuestion(t *testing.T) {
	passages := []string{
		"Refunds are available within 7 days of delivery.",
		"Exchanges require the item to be unopened.",
	}
	b := NewSupportBuilder(passages, "Can I still get a refund?")

	out := b.Build()

	for _, p := range passages {
		if !strings.Contains(out, p) {
			t.Errorf("prompt missing passage %q", p)
		}
	}
	if !strings.Contains(out, "Can I still get a refund?") {
		t.Error("prompt missing the customer question")
	}
	if !strings.Contains(out, "<reference_material>") {
		t.Error("prompt missing reference_material section")
	}
	if !strings.Contains(out, "\n---\n") {
		t.Error("passages not separated by a divider")
	}
}

func TestSupportBuilderNoPassages(t *testing.T) {
	b := NewSupportBuilder(nil, "Where is my order?")

	out := b.Build()

	if strings.Contains(out, "<reference_material>") {
		t.Error("empty retrieval must not emit a reference_material section")
	}
	if !strings.Contains(out, "<customer_question>") {
		t.Error("prompt missing customer_question section")
	}
}

func TestSupportBuilderSectionOrder(t *testing.T) {
	b := NewSupportBuilder([]string{"policy"}, "question")
	out := b.Build()

	refIdx := strings.Index(out, "<reference_material>")
	taskIdx := strings.Index(out, "<task>")
	guideIdx := strings.Index(out, "<guidelines>")
	queryIdx := strings.Index(out, "<customer_question>")

	if !(refIdx < taskIdx && taskIdx < guideIdx && guideIdx < queryIdx) {
		t.Errorf("section order wrong: ref=%d task=%d guide=%d query=%d", refIdx, taskIdx, guideIdx, queryIdx)
	}
}
