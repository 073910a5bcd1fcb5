package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"campuslink/internal/models"

	"gorm.io/gorm"
)

// mentionPunct is stripped from both edges of a token before the @-prefix
// check, so "@alice," and "(@bob)" mention alice and bob while
// "user@example.com" mentions nobody.
const mentionPunct = ".,!?;:'\"()[]{}<>"

// ExtractMentions pulls the distinct @username references out of raw
// content, excluding the author's own username.
func ExtractMentions(raw, excludeUsername string) []string {
	seen := make(map[string]struct{})
	var mentions []string
	for _, token := range strings.Fields(raw) {
		token = strings.Trim(token, mentionPunct)
		if !strings.HasPrefix(token, "@") {
			continue
		}
		name := strings.TrimPrefix(token, "@")
		if name == "" || name == excludeUsername {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		mentions = append(mentions, name)
	}
	return mentions
}

// MentionMessage is one notification handed to the external transport.
type MentionMessage struct {
	To      models.User
	Subject string
	Body    string
	Link    string
}

// Notifier is the outbound transport collaborator. Implementations own
// delivery and are expected to be fire-and-forget: a slow or failing
// transport must not block or fail the content write that triggered it.
type Notifier interface {
	SendBatch(messages []MentionMessage)
}

// MentionDispatcher resolves extracted usernames and notifies them: one
// in-app notification row per resolved user, plus a single batched handoff
// to the Notifier. Unknown usernames are dropped silently.
type MentionDispatcher struct {
	db       *gorm.DB
	notifier Notifier
	siteURL  string
}

func NewMentionDispatcher(db *gorm.DB, notifier Notifier) *MentionDispatcher {
	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "http://localhost:8080"
	}
	return &MentionDispatcher{db: db, notifier: notifier, siteURL: siteURL}
}

// Dispatch notifies the mentioned users about thread. For replies the parent
// thread is still the permalink target.
func (d *MentionDispatcher) Dispatch(mentions []string, thread *models.Thread, actor models.User) error {
	if len(mentions) == 0 {
		return nil
	}

	var users []models.User
	if err := d.db.Where("username IN ?", mentions).Find(&users).Error; err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	link := fmt.Sprintf("%s/threads/%d", d.siteURL, thread.ID)
	messages := make([]MentionMessage, 0, len(users))
	for _, user := range users {
		notification := models.Notification{
			UserID:  user.ID,
			ActorID: &actor.ID,
			Type:    models.NotificationTypeMention,
			Reason:  fmt.Sprintf("@%s mentioned you in %q: %s", actor.Username, thread.Title, link),
		}
		if err := d.db.Create(&notification).Error; err != nil {
			log.Printf("Failed to create mention notification for user %d: %v", user.ID, err)
			continue
		}
		messages = append(messages, MentionMessage{
			To:      user,
			Subject: fmt.Sprintf("@%s mentioned you on %s", actor.Username, thread.Title),
			Body:    fmt.Sprintf("@%s mentioned you in the thread %q. Read it here: %s", actor.Username, thread.Title, link),
			Link:    link,
		})
	}

	if d.notifier != nil && len(messages) > 0 {
		d.notifier.SendBatch(messages)
	}
	return nil
}
