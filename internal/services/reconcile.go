package services

import (
	"log"

	"campuslink/internal/models"

	"gorm.io/gorm"
)

// ReconcileResult counts the rows repaired per counter.
type ReconcileResult struct {
	ThreadUpvotes int
	ReplyUpvotes  int
	ReplyCounts   int
}

type recount struct {
	ID   uint
	Want int
}

// Reconcile recomputes the derived counters from the authoritative sets and
// patches any row that drifted. This is the offline repair pass; the online
// path never full-scans.
func Reconcile(db *gorm.DB) (ReconcileResult, error) {
	var result ReconcileResult

	threadVotes, err := groupCounts(db, "thread_voters", "thread_id")
	if err != nil {
		return result, err
	}
	replyVotes, err := groupCounts(db, "reply_voters", "reply_id")
	if err != nil {
		return result, err
	}

	var replyCounts []recount
	if err := db.Model(&models.Reply{}).
		Select("thread_id AS id, COUNT(*) AS want").
		Where("is_deleted = ?", false).
		Group("thread_id").
		Scan(&replyCounts).Error; err != nil {
		return result, err
	}
	liveReplies := make(map[uint]int, len(replyCounts))
	for _, rc := range replyCounts {
		liveReplies[rc.ID] = rc.Want
	}

	var threads []models.Thread
	if err := db.Select("id", "upvote_count", "reply_count").Find(&threads).Error; err != nil {
		return result, err
	}
	for _, thread := range threads {
		if want := threadVotes[thread.ID]; want != thread.UpvoteCount {
			log.Printf("Thread %d upvote_count %d -> %d", thread.ID, thread.UpvoteCount, want)
			if err := db.Model(&models.Thread{}).Where("id = ?", thread.ID).
				UpdateColumn("upvote_count", want).Error; err != nil {
				return result, err
			}
			result.ThreadUpvotes++
		}
		if want := liveReplies[thread.ID]; want != thread.ReplyCount {
			log.Printf("Thread %d reply_count %d -> %d", thread.ID, thread.ReplyCount, want)
			if err := db.Model(&models.Thread{}).Where("id = ?", thread.ID).
				UpdateColumn("reply_count", want).Error; err != nil {
				return result, err
			}
			result.ReplyCounts++
		}
	}

	var replies []models.Reply
	if err := db.Select("id", "upvote_count").Find(&replies).Error; err != nil {
		return result, err
	}
	for _, reply := range replies {
		if want := replyVotes[reply.ID]; want != reply.UpvoteCount {
			log.Printf("Reply %d upvote_count %d -> %d", reply.ID, reply.UpvoteCount, want)
			if err := db.Model(&models.Reply{}).Where("id = ?", reply.ID).
				UpdateColumn("upvote_count", want).Error; err != nil {
				return result, err
			}
			result.ReplyUpvotes++
		}
	}

	return result, nil
}

func groupCounts(db *gorm.DB, link, fk string) (map[uint]int, error) {
	var rows []recount
	if err := db.Table(link).
		Select(fk + " AS id, COUNT(user_id) AS want").
		Group(fk).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.Want
	}
	return counts, nil
}
