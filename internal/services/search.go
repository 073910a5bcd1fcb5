package services

import (
	"strings"

	"campuslink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Tuning knobs for the fuzzy title index. Both values are carried over from
// observed behavior, not derived; adjust together with product.
const (
	// TitlePadding is the number of spaces added to each side of a
	// normalized title so prefix/suffix boundaries participate in scoring.
	// It also guarantees at least one window for titles under 3 characters.
	TitlePadding = 2
	// MinScore is the relevance floor: candidates sharing fewer distinct
	// trigrams with the prompt are noise and get dropped.
	MinScore = 2
)

// TrigramIndex maintains the shared trigram dictionary and the
// thread<->trigram membership table, and answers fuzzy title searches.
type TrigramIndex struct {
	db *gorm.DB
}

func NewTrigramIndex(db *gorm.DB) *TrigramIndex {
	return &TrigramIndex{db: db}
}

// titleWindows lowercases, pads and cuts s into its distinct 3-rune windows.
func titleWindows(s string) []string {
	pad := strings.Repeat(" ", TitlePadding)
	runes := []rune(pad + strings.ToLower(s) + pad)

	seen := make(map[string]struct{})
	values := make([]string, 0, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		v := string(runes[i : i+3])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// IndexTitle replaces the thread's trigram membership with the window set of
// title. Dictionary entries are created lazily with insert-or-ignore, so
// concurrent first users of the same value both succeed.
func (ix *TrigramIndex) IndexTitle(threadID uint, title string) error {
	values := titleWindows(title)

	rows := make([]models.Trigram, len(values))
	for i, v := range values {
		rows[i] = models.Trigram{Value: v}
	}
	if err := ix.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return err
	}

	var trigrams []models.Trigram
	if err := ix.db.Where("value IN ?", values).Find(&trigrams).Error; err != nil {
		return err
	}

	// Full replace, not a diff: memberships missing from the new set drop out.
	return ix.db.Model(&models.Thread{ID: threadID}).Association("Trigrams").Replace(&trigrams)
}

// Match is one scored search candidate. Score counts the distinct trigram
// values the thread's title shares with the prompt.
type Match struct {
	ThreadID uint `json:"thread_id"`
	Score    int  `json:"score"`
}

// Search windows the prompt like a title and returns candidate threads
// ordered by descending score, ties broken by newer thread id. Soft-deleted
// threads are NOT filtered here; list views own that.
func (ix *TrigramIndex) Search(prompt string) ([]Match, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, nil
	}
	values := titleWindows(prompt)

	var matches []Match
	err := ix.db.Table("thread_trigrams").
		Select("thread_trigrams.thread_id AS thread_id, COUNT(DISTINCT trigrams.id) AS score").
		Joins("JOIN trigrams ON trigrams.id = thread_trigrams.trigram_id").
		Where("trigrams.value IN ?", values).
		Group("thread_trigrams.thread_id").
		Having("COUNT(DISTINCT trigrams.id) >= ?", MinScore).
		Order("score DESC, thread_id DESC").
		Scan(&matches).Error
	return matches, err
}
