package models

// Trigram is one entry in the shared title-index dictionary. Values are
// created lazily on first use and never deleted; the space of 3-character
// windows is bounded, so the dictionary stays small.
type Trigram struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Value string `gorm:"uniqueIndex;size:3;not null" json:"value"`
}
