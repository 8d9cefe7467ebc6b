// Package search provides optional context augmentation for extraction
// requests. Augmentation failures must never abort a turn; callers degrade
// to an empty context string.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/formflow-dev/formflow/pkg/form"
)

// Augmenter retrieves reference material relevant to a user message and the
// form being filled. The returned string is opaque context appended to the
// extraction request.
type Augmenter interface {
	Augment(ctx context.Context, message string, fields form.Registry) (string, error)
}

// Noop is an Augmenter that returns no context.
type Noop struct{}

// Augment returns an empty context string.
func (Noop) Augment(ctx context.Context, message string, fields form.Registry) (string, error) {
	return "", nil
}

// Document is one reference snippet available for retrieval.
type Document struct {
	Title   string `yaml:"title" json:"title"`
	Content string `yaml:"content" json:"content"`
}

// Keyword is a term-overlap retriever over a fixed document set. It scores
// each document by how many query terms appear in it and returns the topK
// contents joined together.
type Keyword struct {
	docs []Document
	topK int
}

// NewKeyword creates a keyword retriever. topK <= 0 defaults to 3.
func NewKeyword(docs []Document, topK int) *Keyword {
	if topK <= 0 {
		topK = 3
	}
	return &Keyword{docs: docs, topK: topK}
}

// Augment returns the topK documents scored by term overlap with the user
// message and the field labels.
func (k *Keyword) Augment(ctx context.Context, message string, fields form.Registry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	terms := tokenize(message)
	for _, f := range fields {
		terms = append(terms, tokenize(f.Label)...)
	}

	type scored struct {
		doc   Document
		score int
	}
	var hits []scored
	for _, doc := range k.docs {
		haystack := strings.ToLower(doc.Title + " " + doc.Content)
		score := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k.topK {
		hits = hits[:k.topK]
	}

	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if hit.doc.Title != "" {
			b.WriteString(hit.doc.Title)
			b.WriteString(": ")
		}
		b.WriteString(hit.doc.Content)
	}
	return b.String(), nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
