package services

import (
	"testing"

	"campuslink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThreadValidation(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	category := createCategory(t, svc, "Courses")

	_, err := svc.CreateThread(author, category.ID, "  ", "body", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateThread(author, category.ID, "Title", "   ", nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateThread(author, 9999, "Title", "body", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateThreadWithTags(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	category := createCategory(t, svc, "Courses")
	tag, err := svc.CreateTag("#physics", "#1A2B3C")
	require.NoError(t, err)

	thread, err := svc.CreateThread(author, category.ID, "PHY F222 Doubts", "help", []uint{tag.ID})
	require.NoError(t, err)

	got, err := svc.GetThread(thread.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, tag.ID, got.Tags[0].ID)
}

func TestCreateReplyOnLockedThread(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")

	locked, err := svc.ToggleLock(thread.ID)
	require.NoError(t, err)
	require.True(t, locked)

	_, err = svc.CreateReply(author, thread.ID, "late reply")
	assert.ErrorIs(t, err, ErrForbidden)

	// Unlock and the reply goes through.
	locked, err = svc.ToggleLock(thread.ID)
	require.NoError(t, err)
	require.False(t, locked)

	_, err = svc.CreateReply(author, thread.ID, "on time after all")
	assert.NoError(t, err)
}

func TestCreateReplyOnDeletedThread(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")

	require.NoError(t, svc.SoftDelete(KindThread, thread.ID))

	_, err := svc.CreateReply(author, thread.ID, "too late")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditTitleOwnerOnly(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	stranger := createUser(t, db, "priya")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")

	_, err := svc.EditTitle(stranger, thread.ID, "Hijacked")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.EditTitle(author, thread.ID, "CS F111 Notes")
	assert.NoError(t, err)
}

func TestEditContentRetriggersMentions(t *testing.T) {
	svc, db, notifier := newTestService(t)
	author := createUser(t, db, "carol")
	createUser(t, db, "alice")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")
	require.Zero(t, notifier.batchCount())

	require.NoError(t, svc.EditContent(author, KindThread, thread.ID, "updated, fyi @alice"))
	assert.Equal(t, 1, notifier.batchCount())

	// A title-only edit must not re-notify.
	_, err := svc.EditTitle(author, thread.ID, "CS F111 Notes")
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.batchCount())
}

func TestEditContentOwnerOnly(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	stranger := createUser(t, db, "priya")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")

	err := svc.EditContent(stranger, KindThread, thread.ID, "hijacked")
	assert.ErrorIs(t, err, ErrForbidden)

	reply, err := svc.CreateReply(author, thread.ID, "bump")
	require.NoError(t, err)
	err = svc.EditContent(stranger, KindReply, reply.ID, "hijacked")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateTagValidatesColor(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, color := range []string{"1A2B3C", "#1A2B3", "#GGGGGG", "red"} {
		_, err := svc.CreateTag("#physics", color)
		assert.ErrorIs(t, err, ErrValidation, "color %q", color)
	}

	tag, err := svc.CreateTag("#physics", "#1A2B3C")
	require.NoError(t, err)
	assert.Equal(t, "#1A2B3C", tag.Color)
}

func TestCreateTagsBulk(t *testing.T) {
	svc, db, _ := newTestService(t)

	require.NoError(t, svc.CreateTags("Physics chemistry maths"))
	// Re-running with an overlap absorbs the conflicts.
	require.NoError(t, svc.CreateTags("maths thermodynamics"))

	var tags []models.Tag
	require.NoError(t, db.Order("name ASC").Find(&tags).Error)
	require.Len(t, tags, 4)
	for _, tag := range tags {
		assert.Regexp(t, `^#[a-z0-9]+$`, tag.Name)
		assert.Regexp(t, `^#[A-Fa-f0-9]{6}$`, tag.Color)
	}

	assert.ErrorIs(t, svc.CreateTags("bad!tag"), ErrValidation)
	assert.ErrorIs(t, svc.CreateTags("   "), ErrValidation)
}

func TestCreateReportTargets(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	reporter := createUser(t, db, "priya")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")
	reply, err := svc.CreateReply(author, thread.ID, "bump")
	require.NoError(t, err)

	report, err := svc.CreateReport(reporter, ThreadTarget{ID: thread.ID}, "spam")
	require.NoError(t, err)
	require.NotNil(t, report.ThreadID)
	assert.Nil(t, report.ReplyID)
	assert.Equal(t, models.ReportStatusPending, report.Status)

	report, err = svc.CreateReport(reporter, ReplyTarget{ID: reply.ID}, "abuse")
	require.NoError(t, err)
	require.NotNil(t, report.ReplyID)
	assert.Nil(t, report.ThreadID)

	_, err = svc.CreateReport(reporter, nil, "no target")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateReport(reporter, ThreadTarget{ID: 9999}, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateReport(reporter, ThreadTarget{ID: thread.ID}, "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestToggleReportStatus(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	reporter := createUser(t, db, "priya")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")

	report, err := svc.CreateReport(reporter, ThreadTarget{ID: thread.ID}, "spam")
	require.NoError(t, err)

	status, err := svc.ToggleReportStatus(report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, status)

	status, err = svc.ToggleReportStatus(report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, status)

	_, err = svc.ToggleReportStatus(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReportsPendingFirst(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	reporter := createUser(t, db, "priya")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")

	resolved, err := svc.CreateReport(reporter, ThreadTarget{ID: thread.ID}, "spam")
	require.NoError(t, err)
	_, err = svc.ToggleReportStatus(resolved.ID)
	require.NoError(t, err)
	pending, err := svc.CreateReport(reporter, ThreadTarget{ID: thread.ID}, "still spam")
	require.NoError(t, err)

	reports, err := svc.ListReports()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, pending.ID, reports[0].ID)
	assert.Equal(t, resolved.ID, reports[1].ID)
}

func TestListThreads(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	voter := createUser(t, db, "priya")
	category := createCategory(t, svc, "Courses")

	first := createThread(t, svc, author, category.ID, "CS F111 Handout")
	second := createThread(t, svc, author, category.ID, "PHY F222 Notes")
	deleted := createThread(t, svc, author, category.ID, "Old Thread")
	require.NoError(t, svc.SoftDelete(KindThread, deleted.ID))

	_, err := svc.ToggleUpvote(KindThread, first.ID, voter)
	require.NoError(t, err)

	top, err := svc.ListThreads(category.ID, OrderTopVoted, nil)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, first.ID, top[0].ID)

	newest, err := svc.ListThreads(category.ID, OrderNewest, nil)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, second.ID, newest[0].ID)

	_, err = svc.ListThreads(category.ID, "views", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListThreadsByTag(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	category := createCategory(t, svc, "Courses")
	tag, err := svc.CreateTag("#physics", "#1A2B3C")
	require.NoError(t, err)

	tagged, err := svc.CreateThread(author, category.ID, "PHY F222 Doubts", "help", []uint{tag.ID})
	require.NoError(t, err)
	createThread(t, svc, author, category.ID, "CS F111 Handout")

	threads, err := svc.ListThreads(category.ID, OrderNewest, []string{"#physics"})
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, tagged.ID, threads[0].ID)
}

func TestListRepliesExcludesDeleted(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")

	kept, err := svc.CreateReply(author, thread.ID, "first")
	require.NoError(t, err)
	gone, err := svc.CreateReply(author, thread.ID, "second")
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(KindReply, gone.ID))

	replies, err := svc.ListReplies(thread.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, kept.ID, replies[0].ID)
}

func TestGetThreadHidesDeleted(t *testing.T) {
	svc, db, _ := newTestService(t)
	author := createUser(t, db, "rohan")
	category := createCategory(t, svc, "Courses")
	thread := createThread(t, svc, author, category.ID, "CS F111 Handout")

	require.NoError(t, svc.SoftDelete(KindThread, thread.ID))

	_, err := svc.GetThread(thread.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
