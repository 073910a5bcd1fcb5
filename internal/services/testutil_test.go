package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"campuslink/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB gives each test its own in-memory SQLite database. The shared
// cache keeps the database alive across the pool's connections.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Trigram{},
		&models.Thread{},
		&models.Reply{},
		&models.Report{},
		&models.Notification{},
	))
	return db
}

// recordingNotifier captures SendBatch calls for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	batches [][]MentionMessage
}

func (n *recordingNotifier) SendBatch(messages []MentionMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, messages)
}

func (n *recordingNotifier) batchCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.batches)
}

func newTestService(t *testing.T) (*ContentService, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := openTestDB(t)
	notifier := &recordingNotifier{}
	return NewContentService(db, notifier), db, notifier
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCategory(t *testing.T, svc *ContentService, name string) *models.Category {
	t.Helper()
	category, err := svc.CreateCategory(name)
	require.NoError(t, err)
	return category
}

func createThread(t *testing.T, svc *ContentService, author models.User, categoryID uint, title string) *models.Thread {
	t.Helper()
	thread, err := svc.CreateThread(author, categoryID, title, "some discussion", nil)
	require.NoError(t, err)
	return thread
}
