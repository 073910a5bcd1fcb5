package services

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"campuslink/internal/models"
	"campuslink/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Thread list orderings accepted by ListThreads.
const (
	OrderNewest   = "newest"
	OrderTopVoted = "top"
)

var tagNamesPattern = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

// ReportTarget is the two-case variant a report points at. Zero or two
// targets cannot be expressed, which is the whole point.
type ReportTarget interface {
	reportTarget()
}

type ThreadTarget struct{ ID uint }

type ReplyTarget struct{ ID uint }

func (ThreadTarget) reportTarget() {}
func (ReplyTarget) reportTarget()  {}

// ContentService orchestrates every content write: persist the row first,
// then re-derive trigrams if the title changed, then recompute mentions if
// the body changed, then update parent aggregates. Failures after the
// persist step surface to the caller but never unwind the committed row.
type ContentService struct {
	db       *gorm.DB
	index    *TrigramIndex
	counters *CounterEngine
	slugs    SlugAllocator
	mentions *MentionDispatcher
}

func NewContentService(db *gorm.DB, notifier Notifier) *ContentService {
	return &ContentService{
		db:       db,
		index:    NewTrigramIndex(db),
		counters: NewCounterEngine(db),
		mentions: NewMentionDispatcher(db, notifier),
	}
}

// CreateCategory allocates a slug from name and persists the category.
func (s *ContentService) CreateCategory(name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	var category models.Category
	_, err := s.slugs.Allocate(name, func(slug string) error {
		candidate := models.Category{Name: name, Slug: slug}
		err := s.db.Create(&candidate).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The name itself may be the duplicate; that is a caller
			// mistake, not a slug collision to retry past.
			var taken int64
			if countErr := s.db.Model(&models.Category{}).
				Where("name = ?", name).
				Count(&taken).Error; countErr != nil {
				return countErr
			}
			if taken > 0 {
				return fmt.Errorf("%w: category %q already exists", ErrValidation, name)
			}
		}
		if err != nil {
			return err
		}
		category = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// RenameCategory updates the name and re-derives the slug with the same
// allocation algorithm used at creation.
func (s *ContentService) RenameCategory(id uint, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	var category models.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		return nil, err
	}

	var taken int64
	if err := s.db.Model(&models.Category{}).
		Where("name = ? AND id <> ?", name, id).
		Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, fmt.Errorf("%w: category %q already exists", ErrValidation, name)
	}

	slug, err := s.slugs.Allocate(name, s.renameCategoryInsert(&category, name))
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Slug = slug
	return &category, nil
}

// renameCategoryInsert builds the allocator closure for a rename. The
// duplicate-key signal here can come from the name index as well as the slug
// index (a concurrent rename can land the same name after the availability
// check), and only genuine slug collisions may reach the allocator as
// gorm.ErrDuplicatedKey.
func (s *ContentService) renameCategoryInsert(category *models.Category, name string) func(string) error {
	return func(slug string) error {
		err := s.db.Model(category).Updates(map[string]interface{}{
			"name": name,
			"slug": slug,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var taken int64
			if countErr := s.db.Model(&models.Category{}).
				Where("name = ? AND id <> ?", name, category.ID).
				Count(&taken).Error; countErr != nil {
				return countErr
			}
			if taken > 0 {
				return fmt.Errorf("%w: category %q already exists", ErrValidation, name)
			}
		}
		return err
	}
}

// CreateTag persists a single tag with an explicit "#RRGGBB" color.
func (s *ContentService) CreateTag(name, color string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", ErrValidation)
	}
	if !utils.IsHexColor(color) {
		return nil, fmt.Errorf("%w: %q is not a valid hex color code", ErrValidation, color)
	}

	tag := models.Tag{Name: name, Color: color}
	if err := s.db.Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: tag %q already exists", ErrValidation, name)
		}
		return nil, err
	}
	return &tag, nil
}

// CreateTags bulk-creates tags from a whitespace-separated list, assigning
// random colors. Names that already exist are skipped silently.
func (s *ContentService) CreateTags(names string) error {
	names = strings.TrimSpace(names)
	if names == "" || !tagNamesPattern.MatchString(names) {
		return fmt.Errorf("%w: tags must be whitespace-separated alphanumeric names", ErrValidation)
	}

	var tags []models.Tag
	for _, name := range strings.Fields(names) {
		tags = append(tags, models.Tag{
			Name:  "#" + strings.ToLower(name),
			Color: utils.RandomColor(),
		})
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tags).Error
}

// CreateThread persists the thread with its tag set, then indexes the title
// and dispatches mentions. The returned thread is valid even when a
// post-persist step failed; the error tells the caller derivation is behind.
func (s *ContentService) CreateThread(author models.User, categoryID uint, title, content string, tagIDs []uint) (*models.Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	var category models.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
		}
		return nil, err
	}

	var tags []models.Tag
	if len(tagIDs) > 0 {
		if err := s.db.Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
			return nil, err
		}
		if len(tags) != len(tagIDs) {
			return nil, fmt.Errorf("%w: one or more tags", ErrNotFound)
		}
	}

	thread := models.Thread{
		CategoryID: categoryID,
		AuthorID:   author.ID,
		Title:      title,
		RawContent: content,
		Tags:       tags,
	}
	if err := s.db.Create(&thread).Error; err != nil {
		return nil, err
	}

	if err := s.index.IndexTitle(thread.ID, thread.Title); err != nil {
		return &thread, err
	}
	if err := s.mentions.Dispatch(ExtractMentions(content, author.Username), &thread, author); err != nil {
		return &thread, err
	}
	return &thread, nil
}

// CreateReply inserts the reply and bumps the parent's reply_count in one
// transaction, holding the thread lock first so deletion cannot interleave.
// Replies to locked or deleted threads are rejected up front.
func (s *ContentService) CreateReply(author models.User, threadID uint, content string) (*models.Reply, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	var thread models.Thread
	var reply models.Reply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&thread, threadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: thread %d", ErrNotFound, threadID)
			}
			return err
		}
		if thread.IsDeleted {
			return fmt.Errorf("%w: thread %d", ErrNotFound, threadID)
		}
		if thread.IsLocked {
			return fmt.Errorf("%w: thread %d is locked", ErrForbidden, threadID)
		}

		reply = models.Reply{
			ThreadID:   threadID,
			AuthorID:   author.ID,
			RawContent: content,
		}
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}
		return recordReplyCreated(tx, threadID)
	})
	if err != nil {
		return nil, err
	}

	if err := s.mentions.Dispatch(ExtractMentions(content, author.Username), &thread, author); err != nil {
		return &reply, err
	}
	return &reply, nil
}

// EditTitle updates a thread title and rebuilds its trigram memberships.
// Author-only. Does NOT re-dispatch mentions; the body was not touched.
func (s *ContentService) EditTitle(actor models.User, threadID uint, title string) (*models.Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	var thread models.Thread
	if err := s.db.First(&thread, threadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: thread %d", ErrNotFound, threadID)
		}
		return nil, err
	}
	if thread.AuthorID != actor.ID {
		return nil, fmt.Errorf("%w: only the author can edit thread %d", ErrForbidden, threadID)
	}

	if err := s.db.Model(&thread).Update("title", title).Error; err != nil {
		return nil, err
	}
	thread.Title = title

	if err := s.index.IndexTitle(thread.ID, title); err != nil {
		return &thread, err
	}
	return &thread, nil
}

// EditContent updates a post body and re-dispatches mentions. Author-only.
// Partial updates that leave the body alone (EditTitle, lock toggles) never
// come through here, so nobody gets re-notified for metadata edits.
func (s *ContentService) EditContent(actor models.User, kind PostKind, postID uint, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}

	var thread models.Thread
	switch kind {
	case KindThread:
		if err := s.db.First(&thread, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: thread %d", ErrNotFound, postID)
			}
			return err
		}
		if thread.AuthorID != actor.ID {
			return fmt.Errorf("%w: only the author can edit thread %d", ErrForbidden, postID)
		}
		if err := s.db.Model(&thread).Update("raw_content", content).Error; err != nil {
			return err
		}
	case KindReply:
		var reply models.Reply
		if err := s.db.First(&reply, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: reply %d", ErrNotFound, postID)
			}
			return err
		}
		if reply.AuthorID != actor.ID {
			return fmt.Errorf("%w: only the author can edit reply %d", ErrForbidden, postID)
		}
		if err := s.db.Model(&reply).Update("raw_content", content).Error; err != nil {
			return err
		}
		if err := s.db.First(&thread, reply.ThreadID).Error; err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown post kind %q", ErrValidation, kind)
	}

	return s.mentions.Dispatch(ExtractMentions(content, actor.Username), &thread, actor)
}

// ToggleUpvote flips the user's vote on a post. Ownership of the aggregate
// discipline lives in the counter engine.
func (s *ContentService) ToggleUpvote(kind PostKind, postID uint, user models.User) (added bool, err error) {
	return s.counters.ToggleUpvote(kind, postID, user.ID)
}

// SoftDelete hides a post exactly once. Who may delete is the caller's
// concern (staff or author, checked externally).
func (s *ContentService) SoftDelete(kind PostKind, postID uint) error {
	return s.counters.SoftDelete(kind, postID)
}

// ToggleLock flips Open<->Locked under the thread's row lock and returns the
// new state. Staff-only, enforced externally.
func (s *ContentService) ToggleLock(threadID uint) (locked bool, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var thread models.Thread
		if err := forUpdate(tx).First(&thread, threadID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: thread %d", ErrNotFound, threadID)
			}
			return err
		}
		locked = !thread.IsLocked
		return tx.Model(&thread).UpdateColumn("is_locked", locked).Error
	})
	return locked, err
}

// CreateReport files a report against exactly one thread or reply.
func (s *ContentService) CreateReport(reporter models.User, target ReportTarget, reason string) (*models.Report, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: a report needs a reason", ErrValidation)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: a report must be linked to either a thread or a reply", ErrValidation)
	}

	report := models.Report{
		ReporterID: reporter.ID,
		Reason:     reason,
		Status:     models.ReportStatusPending,
	}
	switch t := target.(type) {
	case ThreadTarget:
		var thread models.Thread
		if err := s.db.First(&thread, t.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: thread %d", ErrNotFound, t.ID)
			}
			return nil, err
		}
		report.ThreadID = &thread.ID
	case ReplyTarget:
		var reply models.Reply
		if err := s.db.First(&reply, t.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: reply %d", ErrNotFound, t.ID)
			}
			return nil, err
		}
		report.ReplyID = &reply.ID
	default:
		return nil, fmt.Errorf("%w: unknown report target", ErrValidation)
	}

	if err := s.db.Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// ToggleReportStatus flips Pending<->Resolved and returns the new status.
// Staff-only, enforced externally.
func (s *ContentService) ToggleReportStatus(reportID uint) (models.ReportStatus, error) {
	var report models.Report
	if err := s.db.First(&report, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: report %d", ErrNotFound, reportID)
		}
		return "", err
	}

	status := models.ReportStatusPending
	if report.Status == models.ReportStatusPending {
		status = models.ReportStatusResolved
	}
	if err := s.db.Model(&report).UpdateColumn("status", status).Error; err != nil {
		return "", err
	}
	return status, nil
}

// ListReports returns the moderation queue, pending first, newest first
// within each status. Staff-only, enforced externally.
func (s *ContentService) ListReports() ([]models.Report, error) {
	var reports []models.Report
	err := s.db.Preload("Reporter").Preload("Thread").Preload("Reply").
		Order("status ASC, created_at DESC").
		Find(&reports).Error
	return reports, err
}

// SearchThreads runs a fuzzy title search and loads the matching threads in
// score order. Deleted threads are excluded here, not in the index; an
// optional category scopes the result.
func (s *ContentService) SearchThreads(prompt string, categoryID *uint) ([]models.Thread, error) {
	matches, err := s.index.Search(prompt)
	if err != nil || len(matches) == 0 {
		return nil, err
	}

	rank := make(map[uint]int, len(matches))
	ids := make([]uint, len(matches))
	for i, m := range matches {
		rank[m.ThreadID] = i
		ids[i] = m.ThreadID
	}

	q := s.db.Preload("Author").Preload("Category").Preload("Tags").
		Where("id IN ? AND is_deleted = ?", ids, false)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var threads []models.Thread
	if err := q.Find(&threads).Error; err != nil {
		return nil, err
	}
	sort.Slice(threads, func(i, j int) bool {
		return rank[threads[i].ID] < rank[threads[j].ID]
	})
	return threads, nil
}

// ListThreads returns a category's live threads, newest first or top-voted
// first, optionally narrowed to threads carrying any of tagNames.
func (s *ContentService) ListThreads(categoryID uint, order string, tagNames []string) ([]models.Thread, error) {
	var orderSQL string
	switch order {
	case OrderNewest:
		orderSQL = "threads.created_at DESC"
	case OrderTopVoted:
		orderSQL = "threads.upvote_count DESC, threads.created_at DESC"
	default:
		return nil, fmt.Errorf("%w: unknown ordering %q", ErrValidation, order)
	}

	q := s.db.Preload("Author").Preload("Category").Preload("Tags").
		Where("threads.category_id = ? AND threads.is_deleted = ?", categoryID, false)
	if len(tagNames) > 0 {
		q = q.Distinct("threads.*").
			Joins("JOIN thread_tags ON thread_tags.thread_id = threads.id").
			Joins("JOIN tags ON tags.id = thread_tags.tag_id").
			Where("tags.name IN ?", tagNames)
	}

	var threads []models.Thread
	err := q.Order(orderSQL).Find(&threads).Error
	return threads, err
}

// ListReplies returns a thread's live replies, oldest first.
func (s *ContentService) ListReplies(threadID uint) ([]models.Reply, error) {
	var replies []models.Reply
	err := s.db.Preload("Author").
		Where("thread_id = ? AND is_deleted = ?", threadID, false).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}

// GetThread loads a live thread with its author, category and tags.
func (s *ContentService) GetThread(id uint) (*models.Thread, error) {
	var thread models.Thread
	err := s.db.Preload("Author").Preload("Category").Preload("Tags").
		Where("id = ? AND is_deleted = ?", id, false).
		First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: thread %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &thread, nil
}
