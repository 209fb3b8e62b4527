package tutor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/wordwise/internal/extract"
	"github.com/MrWong99/wordwise/internal/observe"
	"github.com/MrWong99/wordwise/internal/resolve"
)

// Word is a vocabulary entry together with its id.
type Word struct {
	ID string `json:"id"`
	resolve.VocabularyEntry
}

// Category is a category together with its id.
type Category struct {
	ID string `json:"id"`
	resolve.Category
}

// Topic is a topic together with its id.
type Topic struct {
	ID string `json:"id"`
	resolve.Topic
}

// NewWord is the input of [Service.AddWord].
type NewWord struct {
	Term        string `json:"term"`
	Meanings    string `json:"meanings"`
	Examples    string `json:"examples"`
	Description string `json:"description"`

	// CategoryName is resolved through find-or-create. Blank means
	// [extract.DefaultCategory].
	CategoryName string `json:"categoryName"`
}

// AddedWord is the result of [Service.AddWord].
type AddedWord struct {
	Word
	IsNew bool `json:"isNew"`
}

// AddWord files w under its category, creating the category and the term as
// needed. An existing term is returned unchanged and no category is created
// for it.
func (s *Service) AddWord(ctx context.Context, userID string, w NewWord) (AddedWord, error) {
	if blank(w.Term) {
		return AddedWord{}, fmt.Errorf("%w: term", ErrEmptyInput)
	}
	userID = s.user(userID)
	existing, found, err := s.words.Find(ctx, userID, w.Term)
	if err != nil {
		return AddedWord{}, err
	}
	if found {
		return AddedWord{Word: Word{ID: existing.ID, VocabularyEntry: existing.Value}}, nil
	}
	cat, err := s.category(ctx, userID, w.CategoryName)
	if err != nil {
		return AddedWord{}, err
	}
	res, err := s.words.FindOrCreateWith(ctx, userID, w.Term, func(v *resolve.VocabularyEntry) {
		v.CategoryID = cat.ID
		v.CategoryName = cat.Value.Name
		v.Meanings = strings.TrimSpace(w.Meanings)
		v.Examples = strings.TrimSpace(w.Examples)
		v.Description = strings.TrimSpace(w.Description)
	})
	if err != nil {
		return AddedWord{}, err
	}
	return AddedWord{Word: Word{ID: res.ID, VocabularyEntry: res.Value}, IsNew: res.IsNew}, nil
}

func (s *Service) category(ctx context.Context, userID, name string) (resolve.Resolved[resolve.Category], error) {
	if blank(name) {
		name = extract.DefaultCategory
	}
	return s.categories.FindOrCreate(ctx, userID, name)
}

// Vocabulary is the result of [Service.ListVocabulary].
type Vocabulary struct {
	// Words are ordered newest first.
	Words      []Word     `json:"vocabulary"`
	Categories []Category `json:"categories"`
}

// ListVocabulary reads the words and categories of a user concurrently.
func (s *Service) ListVocabulary(ctx context.Context, userID string) (Vocabulary, error) {
	userID = s.user(userID)
	var (
		words *resolve.Collection[resolve.VocabularyEntry]
		cats  *resolve.Collection[resolve.Category]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		words, err = s.words.List(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.categories.List(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Vocabulary{}, err
	}

	out := Vocabulary{
		Words:      make([]Word, 0, words.Len()),
		Categories: make([]Category, 0, cats.Len()),
	}
	for id, v := range words.All() {
		out.Words = append(out.Words, Word{ID: id, VocabularyEntry: v})
	}
	slices.SortStableFunc(out.Words, func(a, b Word) int {
		return b.Created().Compare(a.Created())
	})
	for id, c := range cats.All() {
		out.Categories = append(out.Categories, Category{ID: id, Category: c})
	}
	return out, nil
}

// WordPatch lists the fields [Service.UpdateWord] changes. Nil fields are
// left alone.
type WordPatch struct {
	Term         *string `json:"term,omitempty"`
	Meanings     *string `json:"meanings,omitempty"`
	Examples     *string `json:"examples,omitempty"`
	Description  *string `json:"description,omitempty"`
	Status       *string `json:"status,omitempty"`
	CategoryName *string `json:"categoryName,omitempty"`
}

// Empty reports whether p changes nothing.
func (p WordPatch) Empty() bool {
	return p == WordPatch{}
}

// UpdateWord applies p to the word with the given id. Changing the term
// keeps it unique; changing the category name moves the word to that
// category, creating it when needed.
func (s *Service) UpdateWord(ctx context.Context, userID, id string, p WordPatch) (Word, error) {
	if p.Empty() {
		return Word{}, fmt.Errorf("%w: no changes", ErrEmptyInput)
	}
	if p.Status != nil && *p.Status != resolve.StatusPending && *p.Status != resolve.StatusCompleted {
		return Word{}, fmt.Errorf("%w: status %q", ErrInvalidInput, *p.Status)
	}
	userID = s.user(userID)

	var cat *resolve.Resolved[resolve.Category]
	if p.CategoryName != nil {
		c, err := s.category(ctx, userID, *p.CategoryName)
		if err != nil {
			return Word{}, err
		}
		cat = &c
	}

	mutate := func(v *resolve.VocabularyEntry) error {
		set(&v.Meanings, p.Meanings)
		set(&v.Examples, p.Examples)
		set(&v.Description, p.Description)
		set(&v.Status, p.Status)
		if cat != nil {
			v.CategoryID = cat.ID
			v.CategoryName = cat.Value.Name
		}
		return nil
	}

	var (
		v   resolve.VocabularyEntry
		err error
	)
	if p.Term != nil {
		v, err = s.words.Rename(ctx, userID, id, *p.Term, mutate)
	} else {
		v, err = s.words.Update(ctx, userID, id, mutate)
	}
	if err != nil {
		return Word{}, err
	}
	return Word{ID: id, VocabularyEntry: v}, nil
}

func set(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// DeleteWord removes a word. It reports false, without error, when the id
// does not exist.
func (s *Service) DeleteWord(ctx context.Context, userID, id string) (bool, error) {
	return s.words.Delete(ctx, s.user(userID), id)
}

// ClearCategoryWords removes every word filed under categoryID and returns
// how many were removed. The category itself stays.
func (s *Service) ClearCategoryWords(ctx context.Context, userID, categoryID string) (int, error) {
	n, err := s.words.DeleteWhere(ctx, s.user(userID), func(_ string, v resolve.VocabularyEntry) bool {
		return v.CategoryID == categoryID
	})
	if err != nil {
		return 0, err
	}
	observe.Logger(ctx).Info("category words cleared", "category_id", categoryID, "removed", n)
	return n, nil
}

// CreateCategory returns the category matching name, creating it when there
// is none.
func (s *Service) CreateCategory(ctx context.Context, userID, name string) (resolve.Resolved[resolve.Category], error) {
	if blank(name) {
		return resolve.Resolved[resolve.Category]{}, fmt.Errorf("%w: category name", ErrEmptyInput)
	}
	return s.categories.FindOrCreate(ctx, s.user(userID), name)
}

// RenameCategory renames a category and updates the category name copied
// into its words.
func (s *Service) RenameCategory(ctx context.Context, userID, id, name string) (Category, error) {
	if blank(name) {
		return Category{}, fmt.Errorf("%w: category name", ErrEmptyInput)
	}
	userID = s.user(userID)
	c, err := s.categories.Rename(ctx, userID, id, name, nil)
	if err != nil {
		return Category{}, err
	}
	n, err := s.words.UpdateWhere(ctx, userID,
		func(_ string, v resolve.VocabularyEntry) bool { return v.CategoryID == id },
		func(v *resolve.VocabularyEntry) { v.CategoryName = c.Name },
	)
	if err != nil {
		return Category{}, fmt.Errorf("tutor: category %q renamed but words not updated: %w", id, err)
	}
	observe.Logger(ctx).Debug("category renamed", "category_id", id, "words", n)
	return Category{ID: id, Category: c}, nil
}

// CategoryDeletion is the result of [Service.DeleteCategory].
type CategoryDeletion struct {
	Deleted      bool `json:"deleted"`
	WordsRemoved int  `json:"wordsRemoved"`
}

// DeleteCategory removes the words filed under the category, then the
// category itself.
func (s *Service) DeleteCategory(ctx context.Context, userID, id string) (CategoryDeletion, error) {
	userID = s.user(userID)
	n, err := s.ClearCategoryWords(ctx, userID, id)
	if err != nil {
		return CategoryDeletion{}, err
	}
	ok, err := s.categories.Delete(ctx, userID, id)
	if err != nil {
		return CategoryDeletion{WordsRemoved: n}, err
	}
	return CategoryDeletion{Deleted: ok, WordsRemoved: n}, nil
}

// CreateTopic stores a new topic. Titles need not be unique.
func (s *Service) CreateTopic(ctx context.Context, userID, title string) (Topic, error) {
	if blank(title) {
		return Topic{}, fmt.Errorf("%w: topic title", ErrEmptyInput)
	}
	t := s.topics.New(title)
	id, err := s.topics.Create(ctx, s.user(userID), t)
	if err != nil {
		return Topic{}, err
	}
	return Topic{ID: id, Topic: t}, nil
}

// ListTopics returns the topics of a user in stored order.
func (s *Service) ListTopics(ctx context.Context, userID string) ([]Topic, error) {
	coll, err := s.topics.List(ctx, s.user(userID))
	if err != nil {
		return nil, err
	}
	out := make([]Topic, 0, coll.Len())
	for id, t := range coll.All() {
		out = append(out, Topic{ID: id, Topic: t})
	}
	return out, nil
}

// UpdateTopic changes the title of a topic. A missing id yields
// [resolve.ErrNotFound].
func (s *Service) UpdateTopic(ctx context.Context, userID, id, title string) (Topic, error) {
	if blank(title) {
		return Topic{}, fmt.Errorf("%w: topic title", ErrEmptyInput)
	}
	t, err := s.topics.Update(ctx, s.user(userID), id, func(t *resolve.Topic) error {
		t.Title = strings.TrimSpace(title)
		return nil
	})
	if err != nil {
		return Topic{}, err
	}
	return Topic{ID: id, Topic: t}, nil
}

// DeleteTopic removes a topic. It reports false when the id does not exist.
func (s *Service) DeleteTopic(ctx context.Context, userID, id string) (bool, error) {
	return s.topics.Delete(ctx, s.user(userID), id)
}

// TopicWords is the result of [Service.CreateTopicWords].
type TopicWords struct {
	CategoryID string `json:"categoryId"`

	// Words holds every resolved word, new or existing.
	Words []AddedWord `json:"createdWords"`

	// Skipped counts generated words that could not be stored.
	Skipped int `json:"skipped"`
}

// CreateTopicWords asks the model for a word list about topic and files
// every word under categoryName. Words that fail to store are logged and
// skipped.
func (s *Service) CreateTopicWords(ctx context.Context, userID, topic, categoryName string) (TopicWords, error) {
	switch {
	case blank(topic):
		return TopicWords{}, fmt.Errorf("%w: topic", ErrEmptyInput)
	case blank(categoryName):
		return TopicWords{}, fmt.Errorf("%w: category name", ErrEmptyInput)
	}
	userID = s.user(userID)

	raw, err := s.complete(ctx, "topic words", TopicWordsPrompt(topic))
	if err != nil {
		return TopicWords{}, err
	}
	r := decode(ctx, s.metrics, raw, extract.TopicWordsSchema())
	if !r.OK() {
		return TopicWords{}, fmt.Errorf("%w: %w", ErrNoWordsGenerated, r.Err)
	}
	if len(r.Value) == 0 {
		return TopicWords{}, ErrNoWordsGenerated
	}

	cat, err := s.category(ctx, userID, categoryName)
	if err != nil {
		return TopicWords{}, err
	}

	out := TopicWords{CategoryID: cat.ID, Words: make([]AddedWord, 0, len(r.Value))}
	log := observe.Logger(ctx)
	for _, w := range r.Value {
		res, err := s.words.FindOrCreateWith(ctx, userID, strings.ToLower(w.Term), func(v *resolve.VocabularyEntry) {
			v.CategoryID = cat.ID
			v.CategoryName = cat.Value.Name
			v.Meanings = w.Meanings
			v.Examples = w.Examples
		})
		if err != nil {
			log.Warn("skipping generated word", "term", w.Term, "err", err)
			out.Skipped++
			continue
		}
		out.Words = append(out.Words, AddedWord{
			Word:  Word{ID: res.ID, VocabularyEntry: res.Value},
			IsNew: res.IsNew,
		})
	}
	log.Info("topic words created",
		"topic", topic, "category_id", cat.ID, "words", len(out.Words), "skipped", out.Skipped)
	return out, nil
}
