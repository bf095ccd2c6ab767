package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/transfer"
)

// stubDB satisfies BeginTx/Commit/Rollback without a real database. The
// repository fakes never touch the transaction.
type stubConnector struct{}

func (stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn{}, nil }
func (stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func stubDB() *sql.DB {
	return sql.OpenDB(stubConnector{})
}

type fakePostRepo struct {
	posts  map[int64]*models.Post
	nextID int64

	published []int64
	failed    map[int64]string
	archived  []int64
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[int64]*models.Post{}, failed: map[int64]string{}, nextID: 1}
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	id := f.nextID
	f.nextID++
	post.ID = id
	f.posts[id] = post
	return id, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range f.posts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) UpdateStatus(ctx context.Context, postID int64, status string) error {
	if p, ok := f.posts[postID]; ok {
		p.Status = status
	}
	return nil
}

func (f *fakePostRepo) MarkPublished(ctx context.Context, postID int64, publishedAt time.Time) error {
	f.published = append(f.published, postID)
	if p, ok := f.posts[postID]; ok {
		p.Status = models.PostStatusPublished
		p.PublishedAt = sql.NullTime{Time: publishedAt, Valid: true}
	}
	return nil
}

func (f *fakePostRepo) MarkFailed(ctx context.Context, postID int64, errorMessage string) error {
	if p, ok := f.posts[postID]; ok && p.Status == models.PostStatusPublished {
		return nil
	}
	f.failed[postID] = errorMessage
	if p, ok := f.posts[postID]; ok {
		p.Status = models.PostStatusFailed
	}
	return nil
}

func (f *fakePostRepo) ListPublishedSince(ctx context.Context, since time.Time) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range f.posts {
		if p.Status == models.PostStatusPublished {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) Archive(ctx context.Context, userID, postID int64) error {
	f.archived = append(f.archived, postID)
	return nil
}

type fakeQueueRepo struct {
	entries map[int64]*models.QueueEntry
	nextID  int64

	completed   map[int64]string
	failedMsgs  map[int64]string
	rescheduled map[int64]time.Time
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{
		entries:     map[int64]*models.QueueEntry{},
		nextID:      1,
		completed:   map[int64]string{},
		failedMsgs:  map[int64]string{},
		rescheduled: map[int64]time.Time{},
	}
}

func (f *fakeQueueRepo) Create(ctx context.Context, tx *sql.Tx, entry *models.QueueEntry) (int64, error) {
	id := f.nextID
	f.nextID++
	entry.ID = id
	entry.Status = models.QueueStatusPending
	f.entries[id] = entry
	return id, nil
}

func (f *fakeQueueRepo) GetByID(ctx context.Context, id int64) (*models.QueueEntry, error) {
	return f.entries[id], nil
}

func (f *fakeQueueRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.QueueEntry, error) {
	var out []*models.QueueEntry
	for _, e := range f.entries {
		if e.Status == models.QueueStatusPending && !e.ScheduledFor.After(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.QueueEntry, error) {
	var out []*models.QueueEntry
	for _, e := range f.entries {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) Claim(ctx context.Context, id int64, at time.Time) (bool, error) {
	e, ok := f.entries[id]
	if !ok || e.Status != models.QueueStatusPending {
		return false, nil
	}
	if e.LastAttemptAt.Valid && !e.LastAttemptAt.Time.Before(at.Add(-time.Minute)) {
		return false, nil
	}
	e.Attempts++
	e.LastAttemptAt = sql.NullTime{Time: at, Valid: true}
	return true, nil
}

func (f *fakeQueueRepo) MarkCompleted(ctx context.Context, id int64, platformPostID string) error {
	f.completed[id] = platformPostID
	if e, ok := f.entries[id]; ok {
		e.Status = models.QueueStatusCompleted
		e.PlatformPostID = sql.NullString{String: platformPostID, Valid: platformPostID != ""}
	}
	return nil
}

func (f *fakeQueueRepo) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	f.failedMsgs[id] = errorMessage
	if e, ok := f.entries[id]; ok {
		e.Status = models.QueueStatusFailed
		e.ErrorMessage = sql.NullString{String: errorMessage, Valid: true}
	}
	return nil
}

func (f *fakeQueueRepo) Reschedule(ctx context.Context, id int64, nextAttempt time.Time, errorMessage string) error {
	f.rescheduled[id] = nextAttempt
	if e, ok := f.entries[id]; ok {
		e.ScheduledFor = nextAttempt
		e.ErrorMessage = sql.NullString{String: errorMessage, Valid: true}
	}
	return nil
}

func (f *fakeQueueRepo) ListCompletedByPostIDs(ctx context.Context, postIDs []int64) ([]*models.QueueEntry, error) {
	var out []*models.QueueEntry
	for _, e := range f.entries {
		if e.Status != models.QueueStatusCompleted {
			continue
		}
		for _, id := range postIDs {
			if e.PostID == id {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

type fakeAccountRepo struct {
	accounts    map[string]*models.SocialAccount
	deactivated []int64
}

func newFakeAccountRepo(platforms ...string) *fakeAccountRepo {
	f := &fakeAccountRepo{accounts: map[string]*models.SocialAccount{}}
	for i, p := range platforms {
		f.accounts[p] = &models.SocialAccount{
			ID:       int64(i + 1),
			UserID:   7,
			Platform: p,
			IsActive: true,
		}
	}
	return f
}

func (f *fakeAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return 0, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountRepo) GetActiveByUserPlatform(ctx context.Context, userID int64, platform string) (*models.SocialAccount, error) {
	a, ok := f.accounts[platform]
	if !ok || !a.IsActive {
		return nil, nil
	}
	return a, nil
}

func (f *fakeAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAccountRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	return nil
}

func (f *fakeAccountRepo) Deactivate(ctx context.Context, id int64) error {
	f.deactivated = append(f.deactivated, id)
	for _, a := range f.accounts {
		if a.ID == id {
			a.IsActive = false
		}
	}
	return nil
}

func (f *fakeAccountRepo) Remove(ctx context.Context, userID, id int64) error {
	return nil
}

func TestScheduleFansOutPerPlatform(t *testing.T) {
	pr := newFakePostRepo()
	qr := newFakeQueueRepo()
	ar := newFakeAccountRepo("twitter", "linkedin")
	svc := NewPostService(stubDB(), pr, qr, ar)

	scheduledFor := time.Now().Add(2 * time.Hour).UTC()
	postID, err := svc.Schedule(context.Background(), 7, &transfer.PostCreation{
		Content:      "launch day",
		Hashtags:     []string{"#launch"},
		Platforms:    []string{"twitter", "linkedin"},
		ScheduledFor: scheduledFor.Format(time.RFC3339),
	})
	require.NoError(t, err)

	post := pr.posts[postID]
	require.NotNil(t, post)
	assert.Equal(t, models.PostStatusScheduled, post.Status)

	entries, _ := qr.ListByPostID(context.Background(), postID)
	require.Len(t, entries, 2, "one queue entry per platform")

	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.Platform] = true
		assert.Equal(t, postID, e.PostID)
		assert.Equal(t, int64(7), e.UserID)
		assert.Equal(t, models.QueueStatusPending, e.Status)
		assert.WithinDuration(t, scheduledFor, e.ScheduledFor, time.Second)
	}
	assert.True(t, seen["twitter"] && seen["linkedin"])
}

func TestScheduleRejectsUnknownPlatform(t *testing.T) {
	svc := NewPostService(stubDB(), newFakePostRepo(), newFakeQueueRepo(), newFakeAccountRepo("twitter"))

	_, err := svc.Schedule(context.Background(), 7, &transfer.PostCreation{
		Content:   "hello",
		Platforms: []string{"myspace"},
	})
	assert.Error(t, err)
}

func TestScheduleRequiresConnectedAccount(t *testing.T) {
	pr := newFakePostRepo()
	svc := NewPostService(stubDB(), pr, newFakeQueueRepo(), newFakeAccountRepo("twitter"))

	_, err := svc.Schedule(context.Background(), 7, &transfer.PostCreation{
		Content:   "hello",
		Platforms: []string{"twitter", "linkedin"},
	})
	require.Error(t, err)
	assert.Empty(t, pr.posts, "nothing persisted when an account is missing")
}

func TestScheduleValidation(t *testing.T) {
	svc := NewPostService(stubDB(), newFakePostRepo(), newFakeQueueRepo(), newFakeAccountRepo("twitter"))
	ctx := context.Background()

	_, err := svc.Schedule(ctx, 7, nil)
	assert.Error(t, err)

	_, err = svc.Schedule(ctx, 7, &transfer.PostCreation{Platforms: []string{"twitter"}})
	assert.Error(t, err, "empty content")

	_, err = svc.Schedule(ctx, 7, &transfer.PostCreation{Content: "hi"})
	assert.Error(t, err, "no platforms")

	_, err = svc.Schedule(ctx, 7, &transfer.PostCreation{
		Content:      "hi",
		Platforms:    []string{"twitter"},
		ScheduledFor: "tomorrow at nine",
	})
	assert.Error(t, err, "unparseable schedule time")
}

func TestSchedulePastTimeRunsImmediately(t *testing.T) {
	qr := newFakeQueueRepo()
	svc := NewPostService(stubDB(), newFakePostRepo(), qr, newFakeAccountRepo("twitter"))

	before := time.Now()
	_, err := svc.Schedule(context.Background(), 7, &transfer.PostCreation{
		Content:      "hi",
		Platforms:    []string{"twitter"},
		ScheduledFor: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)

	for _, e := range qr.entries {
		assert.False(t, e.ScheduledFor.Before(before), "past times are clamped to now")
	}
}

func TestStatusReportsPerPlatformState(t *testing.T) {
	pr := newFakePostRepo()
	qr := newFakeQueueRepo()
	svc := NewPostService(stubDB(), pr, qr, newFakeAccountRepo("twitter", "tiktok"))

	postID, err := svc.Schedule(context.Background(), 7, &transfer.PostCreation{
		Content:   "hi",
		MediaURLs: []string{"https://cdn.example.com/a.png"},
		Platforms: []string{"twitter", "tiktok"},
	})
	require.NoError(t, err)

	entries, _ := qr.ListByPostID(context.Background(), postID)
	require.Len(t, entries, 2)
	qr.MarkCompleted(context.Background(), entries[0].ID, "ext-1")
	qr.MarkFailed(context.Background(), entries[1].ID, "server exploded")

	status, err := svc.Status(context.Background(), postID, 7)
	require.NoError(t, err)

	require.Len(t, status.Entries, 2)
	states := map[string]string{}
	for _, e := range status.Entries {
		states[e.Platform] = e.Status
	}
	assert.Equal(t, models.QueueStatusCompleted, states[entries[0].Platform])
	assert.Equal(t, models.QueueStatusFailed, states[entries[1].Platform])
}

func TestStatusOtherUsersPostHidden(t *testing.T) {
	pr := newFakePostRepo()
	svc := NewPostService(stubDB(), pr, newFakeQueueRepo(), newFakeAccountRepo("twitter"))

	postID, err := svc.Schedule(context.Background(), 7, &transfer.PostCreation{
		Content:   "hi",
		Platforms: []string{"twitter"},
	})
	require.NoError(t, err)

	_, err = svc.Status(context.Background(), postID, 99)
	assert.Error(t, err)
}
