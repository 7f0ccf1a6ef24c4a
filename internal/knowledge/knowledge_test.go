package knowledge

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/crowdsense/internal/events"
)

func TestLoadKnowledgeBase(t *testing.T) {
	b, err := Load(filepath.Join("testdata", "knowledge.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	names := b.Events()
	if len(names) != 7 || names[0] != "bomb" || names[6] != "spotlight" {
		t.Fatalf("events=%v want 7 in file order", names)
	}
	if got := len(b.Expected("bomb")); got != 3 {
		t.Fatalf("bomb expected properties=%d want 3", got)
	}

	flashes := b.Matching(events.Vision, "flash")
	if len(flashes) != 2 || flashes[0].Event != "bomb" || flashes[1].Event != "dynamite" {
		t.Fatalf("flash rules=%+v want bomb then dynamite", flashes)
	}
	if got := b.Matching(events.Hearing, "flash"); len(got) != 0 {
		t.Fatalf("flash is a vision property, got hearing rules %+v", got)
	}
	if got := b.Types(events.Smell); strings.Join(got, ",") != "barbecue,smoke" {
		t.Fatalf("smell types=%v", got)
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"unknown sense": `
events:
  - name: bomb
    properties:
      - {type: flash, sense: taste, alpha: 1, r: 1, epsilon: 1, min: 0, max: 1}
`,
		"missing alpha": `
events:
  - name: bomb
    properties:
      - {type: flash, sense: vision, r: 1, epsilon: 1, min: 0, max: 1}
`,
		"zero r": `
events:
  - name: bomb
    properties:
      - {type: flash, sense: vision, alpha: 1, r: 0, epsilon: 0, min: 0, max: 1}
`,
		"epsilon wider than r": `
events:
  - name: bomb
    properties:
      - {type: flash, sense: vision, alpha: 1, r: 5, epsilon: 6, min: 0, max: 1}
`,
		"inverted range": `
events:
  - name: bomb
    properties:
      - {type: flash, sense: vision, alpha: 1, r: 5, epsilon: 2, min: 3, max: 1}
`,
		"duplicate property": `
events:
  - name: bomb
    properties:
      - {type: flash, sense: vision, alpha: 1, r: 5, epsilon: 2, min: 0, max: 1}
      - {type: flash, sense: vision, alpha: 2, r: 5, epsilon: 2, min: 0, max: 1}
`,
		"unknown field": `
events:
  - name: bomb
    colour: red
    properties:
      - {type: flash, sense: vision, alpha: 1, r: 5, epsilon: 2, min: 0, max: 1}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNilBaseIsEmpty(t *testing.T) {
	var b *Base
	if b.Len() != 0 || b.Matching(events.Vision, "flash") != nil || b.Expected("bomb") != nil {
		t.Fatal("nil base should behave as empty")
	}
}
