package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/email"
	"github.com/animalportal/server/internal/model"
)

// In-memory repo fakes used across the auth service tests.

type fakeOtpRepo struct {
	mu      sync.Mutex
	records map[string]model.OtpVerification
}

func newFakeOtpRepo() *fakeOtpRepo {
	return &fakeOtpRepo{records: make(map[string]model.OtpVerification)}
}

func (f *fakeOtpRepo) GetByEmail(_ context.Context, email string) (model.OtpVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[email]
	if !ok {
		return model.OtpVerification{}, db.ErrNotFound
	}
	return rec, nil
}

func (f *fakeOtpRepo) Upsert(_ context.Context, rec model.OtpVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.CreatedAt = time.Now()
	f.records[rec.Email] = rec
	return nil
}

func (f *fakeOtpRepo) IncrementAttempt(_ context.Context, email string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[email]
	if !ok {
		return 0, db.ErrNotFound
	}
	rec.AttemptCount++
	f.records[email] = rec
	return rec.AttemptCount, nil
}

func (f *fakeOtpRepo) MarkVerified(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[email]
	if !ok {
		return db.ErrNotFound
	}
	rec.Verified = true
	f.records[email] = rec
	return nil
}

func (f *fakeOtpRepo) Delete(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[email]; !ok {
		return db.ErrNotFound
	}
	delete(f.records, email)
	return nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, email, passwordHash, fullName string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; ok {
		return model.User{}, db.ErrUniqueViolation
	}
	now := time.Now()
	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Status:       model.StatusInactive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.byEmail[email] = user
	return user, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return model.User{}, db.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return model.User{}, db.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) UpdateStatus(_ context.Context, email, status string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return model.User{}, db.ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = time.Now()
	f.byEmail[email] = user
	return user, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return model.User{}, db.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	f.byEmail[email] = user
	return user, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]model.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, s model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.CreatedAt = time.Now()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return model.Session{}, db.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessionRepo) GetByRefreshToken(_ context.Context, refreshToken string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.RefreshToken != nil && *s.RefreshToken == refreshToken && s.ExpiresAt.After(time.Now()) {
			return s, nil
		}
	}
	return model.Session{}, db.ErrNotFound
}

func (f *fakeSessionRepo) UpdateTokens(_ context.Context, id, token string, refreshToken *string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	s.Token = token
	s.RefreshToken = refreshToken
	s.ExpiresAt = expiresAt
	f.sessions[id] = s
	return nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return db.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for id, s := range f.sessions {
		if s.ExpiresAt.Before(now) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// fakeSender records sent emails; fails when failWith is set.
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentEmail
	failWith error
}

type sentEmail struct {
	To       string
	Subject  string
	Template string
	Data     email.TemplateData
}

func (f *fakeSender) Send(to, subject, plainBody, templateName string, data email.TemplateData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Template: templateName, Data: data})
	return nil
}

func (f *fakeSender) lastSent() (sentEmail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentEmail{}, false
	}
	return f.sent[len(f.sent)-1], true
}
