package library

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// MaxRecommendations caps the length of every recommendation list.
const MaxRecommendations = 5

// Recommender suggests books by category affinity.
type Recommender struct {
	lib *Library
}

// NewRecommender returns the recommendation engine of lib.
func NewRecommender(lib *Library) *Recommender { return &Recommender{lib: lib} }

// Recommend returns up to MaxRecommendations books for userID, most
// relevant first.
//
// A user with no history gets the most borrowed books of the library, or
// a random sample of available books when nothing was ever borrowed;
// that sample is not deterministic unless WithRand was given. Otherwise
// the user's most borrowed categories (all of them when tied) select
// available books the user does not currently hold. Books the user
// borrowed and returned may be suggested again. An empty result means no
// recommendation.
func (r *Recommender) Recommend(userID string) ([]Book, error) {
	var (
		out      []Book
		err      error
		strategy string
	)
	r.lib.view(func(s *Snapshot) {
		ui := s.userIndex(userID)
		if ui < 0 {
			err = fmt.Errorf("user %q: %w", userID, ErrNotFound)
			return
		}

		history := make(map[string]bool)
		for _, rec := range s.Ledger {
			if rec.UserID == userID {
				history[rec.BookID] = true
			}
		}

		switch {
		case len(history) == 0 && len(s.Ledger) == 0:
			strategy = "random"
			out = r.sampleAvailable(s)
		case len(history) == 0:
			strategy = "popular"
			out = mostBorrowed(s)
		default:
			strategy = "category"
			out = byCategory(s, &s.Users[ui], history)
		}
	})
	if err != nil {
		return nil, err
	}
	r.lib.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"strategy": strategy,
		"count":    len(out),
	}).Debug("recommendations computed")
	return out, nil
}

func (r *Recommender) sampleAvailable(s *Snapshot) []Book {
	pool := []Book{}
	for _, b := range s.Books {
		if b.Available {
			pool = append(pool, b)
		}
	}
	r.lib.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return truncate(pool)
}

// mostBorrowed ranks catalog books by borrow count across the whole
// ledger, ties in catalog order.
func mostBorrowed(s *Snapshot) []Book {
	counts := make(map[string]int)
	for _, rec := range s.Ledger {
		counts[rec.BookID]++
	}
	ranked := []Book{}
	for _, b := range s.Books {
		if counts[b.ID] > 0 {
			ranked = append(ranked, b)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i].ID] > counts[ranked[j].ID]
	})
	return truncate(ranked)
}

func byCategory(s *Snapshot, user *User, history map[string]bool) []Book {
	freq := make(map[string]int)
	for _, b := range s.Books {
		if history[b.ID] {
			freq[b.Category]++
		}
	}
	top := 0
	for _, n := range freq {
		if n > top {
			top = n
		}
	}
	if top == 0 {
		return []Book{}
	}

	picked := []Book{}
	for _, b := range s.Books {
		if freq[b.Category] != top || !b.Available || user.Holds(b.ID) {
			continue
		}
		picked = append(picked, b)
	}
	// Ties fall back to catalog order.
	sort.SliceStable(picked, func(i, j int) bool {
		return freq[picked[i].Category] > freq[picked[j].Category]
	})
	return truncate(picked)
}

func truncate(books []Book) []Book {
	if len(books) > MaxRecommendations {
		return books[:MaxRecommendations]
	}
	return books
}
