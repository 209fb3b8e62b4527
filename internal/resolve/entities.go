package resolve

import (
	"strings"
	"time"

	"github.com/MrWong99/wordwise/pkg/docstore"
)

// Vocabulary entry states.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// VocabularyEntry is one saved word. Terms are stored lowercased.
type VocabularyEntry struct {
	Term         string `json:"term"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Description  string `json:"description"`
	Meanings     string `json:"meanings"`
	Examples     string `json:"examples"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
}

// Created parses CreatedAt. Entries with a missing or malformed timestamp
// report the zero time.
func (v VocabularyEntry) Created() time.Time {
	return parseTime(v.CreatedAt)
}

// Category groups vocabulary entries. Names keep the case they were created
// with.
type Category struct {
	Name string `json:"name"`
}

// Topic is a conversation topic the learner practises.
type Topic struct {
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

// Created parses CreatedAt like [VocabularyEntry.Created].
func (t Topic) Created() time.Time {
	return parseTime(t.CreatedAt)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Timestamp formats t the way CreatedAt fields are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Vocabulary describes the per-user word collection.
func Vocabulary() Entity[VocabularyEntry] {
	return Entity[VocabularyEntry]{
		Name:       "vocabulary",
		Collection: docstore.Vocabulary,
		Prefix:     "word",
		Key:        func(v VocabularyEntry) string { return v.Term },
		New: func(term string, now time.Time) VocabularyEntry {
			return VocabularyEntry{
				Term:      strings.ToLower(strings.TrimSpace(term)),
				Status:    StatusPending,
				CreatedAt: Timestamp(now),
			}
		},
		SetKey: func(v *VocabularyEntry, term string) {
			v.Term = strings.ToLower(strings.TrimSpace(term))
		},
	}
}

// Categories describes the per-user category collection.
func Categories() Entity[Category] {
	return Entity[Category]{
		Name:       "category",
		Collection: docstore.Categories,
		Prefix:     "cat",
		Key:        func(c Category) string { return c.Name },
		New: func(name string, _ time.Time) Category {
			return Category{Name: strings.TrimSpace(name)}
		},
		SetKey: func(c *Category, name string) { c.Name = strings.TrimSpace(name) },
	}
}

// Topics describes the per-user topic collection.
func Topics() Entity[Topic] {
	return Entity[Topic]{
		Name:       "topic",
		Collection: docstore.Topics,
		Prefix:     "topic",
		Key:        func(t Topic) string { return t.Title },
		New: func(title string, now time.Time) Topic {
			return Topic{Title: strings.TrimSpace(title), CreatedAt: Timestamp(now)}
		},
		SetKey: func(t *Topic, title string) { t.Title = strings.TrimSpace(title) },
	}
}
