package services

import (
	"errors"
	"fmt"

	"campuslink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostKind selects which post table an operation targets.
type PostKind string

const (
	KindThread PostKind = "thread"
	KindReply  PostKind = "reply"
)

// forUpdate adds a row-level lock where the dialect supports one. SQLite
// serializes writers on its own and rejects FOR UPDATE syntax, so the clause
// only applies on Postgres.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// CounterEngine keeps upvote_count and reply_count consistent with the
// authoritative voter/reply sets. Every mutation couples the set change and
// the counter delta inside one transaction under the post's row lock, so the
// two can never diverge online. Full recounts are the offline Reconcile job.
type CounterEngine struct {
	db *gorm.DB
}

func NewCounterEngine(db *gorm.DB) *CounterEngine {
	return &CounterEngine{db: db}
}

// ToggleUpvote adds userID to the post's voter set and increments
// upvote_count, or removes and decrements if already present. Returns whether
// the vote was added. The membership check and both writes happen under the
// post's row lock, so concurrent toggles by the same user cannot both apply.
func (e *CounterEngine) ToggleUpvote(kind PostKind, postID, userID uint) (added bool, err error) {
	err = e.db.Transaction(func(tx *gorm.DB) error {
		switch kind {
		case KindThread:
			return e.toggle(tx, &models.Thread{}, "thread_voters", "thread_id", postID, userID, &added)
		case KindReply:
			return e.toggle(tx, &models.Reply{}, "reply_voters", "reply_id", postID, userID, &added)
		default:
			return fmt.Errorf("%w: unknown post kind %q", ErrValidation, kind)
		}
	})
	return added, err
}

func (e *CounterEngine) toggle(tx *gorm.DB, post interface{}, link, fk string, postID, userID uint, added *bool) error {
	if err := forUpdate(tx).First(post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: post %d", ErrNotFound, postID)
		}
		return err
	}

	var voted int64
	if err := tx.Table(link).
		Where(fmt.Sprintf("%s = ? AND user_id = ?", fk), postID, userID).
		Count(&voted).Error; err != nil {
		return err
	}

	if voted > 0 {
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND user_id = ?", link, fk), postID, userID).Error; err != nil {
			return err
		}
		*added = false
		return tx.Model(post).UpdateColumn("upvote_count", gorm.Expr("upvote_count - 1")).Error
	}

	if err := tx.Exec(fmt.Sprintf("INSERT INTO %s (%s, user_id) VALUES (?, ?)", link, fk), postID, userID).Error; err != nil {
		return err
	}
	*added = true
	return tx.Model(post).UpdateColumn("upvote_count", gorm.Expr("upvote_count + 1")).Error
}

// SoftDelete flips is_deleted exactly once; repeated calls are no-ops. For a
// reply it also decrements the parent thread's reply_count, taking the thread
// lock before the reply lock — the same order reply creation uses.
func (e *CounterEngine) SoftDelete(kind PostKind, postID uint) error {
	switch kind {
	case KindThread:
		return e.db.Transaction(func(tx *gorm.DB) error {
			var thread models.Thread
			if err := forUpdate(tx).First(&thread, postID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: thread %d", ErrNotFound, postID)
				}
				return err
			}
			if thread.IsDeleted {
				return nil
			}
			return tx.Model(&thread).UpdateColumn("is_deleted", true).Error
		})
	case KindReply:
		return e.db.Transaction(func(tx *gorm.DB) error {
			var reply models.Reply
			if err := tx.First(&reply, postID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: reply %d", ErrNotFound, postID)
				}
				return err
			}

			// Parent before child, or this deadlocks against CreateReply.
			var thread models.Thread
			if err := forUpdate(tx).First(&thread, reply.ThreadID).Error; err != nil {
				return err
			}
			if err := forUpdate(tx).First(&reply, postID).Error; err != nil {
				return err
			}
			if reply.IsDeleted {
				return nil
			}

			if err := tx.Model(&reply).UpdateColumn("is_deleted", true).Error; err != nil {
				return err
			}
			return tx.Model(&thread).UpdateColumn("reply_count", gorm.Expr("reply_count - 1")).Error
		})
	}
	return fmt.Errorf("%w: unknown post kind %q", ErrValidation, kind)
}

// recordReplyCreated bumps the parent counter inside the caller's
// transaction. Called exactly once per successful reply insert and never
// retried, so the increment is at-most-once.
func recordReplyCreated(tx *gorm.DB, threadID uint) error {
	return tx.Model(&models.Thread{}).
		Where("id = ?", threadID).
		UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).Error
}
