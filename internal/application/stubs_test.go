package application

import (
	"context"
	"sync"
	"time"

	"github.com/example/maintenance-scheduler/internal/scheduler"
)

type userRepositoryStub struct {
	users     map[string]User
	hashes    map[string]string
	createErr error
	updateErr error
	deleteErr error
	listErr   error
}

func newUserRepositoryStub() *userRepositoryStub {
	return &userRepositoryStub{users: make(map[string]User), hashes: make(map[string]string)}
}

func (s *userRepositoryStub) seed(user User, hash string) {
	s.users[user.Username] = user
	s.hashes[user.Username] = hash
}

func (s *userRepositoryStub) CreateUser(_ context.Context, user User, passwordHash string) (User, error) {
	if s.createErr != nil {
		return User{}, s.createErr
	}
	if _, ok := s.users[user.Username]; ok {
		return User{}, ErrAlreadyExists
	}
	s.users[user.Username] = user
	s.hashes[user.Username] = passwordHash
	return user, nil
}

func (s *userRepositoryStub) GetUser(_ context.Context, username string) (User, error) {
	user, ok := s.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *userRepositoryStub) UpdateUser(_ context.Context, user User, passwordHash *string) (User, error) {
	if s.updateErr != nil {
		return User{}, s.updateErr
	}
	if _, ok := s.users[user.Username]; !ok {
		return User{}, ErrNotFound
	}
	s.users[user.Username] = user
	if passwordHash != nil {
		s.hashes[user.Username] = *passwordHash
	}
	return user, nil
}

func (s *userRepositoryStub) DeleteUser(_ context.Context, username string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.users[username]; !ok {
		return ErrNotFound
	}
	delete(s.users, username)
	delete(s.hashes, username)
	return nil
}

func (s *userRepositoryStub) ListUsers(_ context.Context, page PageRequest) ([]User, PageInfo, error) {
	if s.listErr != nil {
		return nil, PageInfo{}, s.listErr
	}
	users := make([]User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	return users, PageInfo{CurrentPage: 1, PageSize: len(users), TotalItems: len(users), TotalPages: 1}, nil
}

type credentialStoreStub struct {
	credentials map[string]UserCredentials
	setErr      error
	setCalls    int
}

func newCredentialStoreStub() *credentialStoreStub {
	return &credentialStoreStub{credentials: make(map[string]UserCredentials)}
}

func (s *credentialStoreStub) seed(creds UserCredentials) {
	s.credentials[creds.User.Username] = creds
}

func (s *credentialStoreStub) GetUserCredentials(_ context.Context, username string) (UserCredentials, error) {
	creds, ok := s.credentials[username]
	if !ok {
		return UserCredentials{}, ErrNotFound
	}
	return creds, nil
}

func (s *credentialStoreStub) GetUser(_ context.Context, username string) (User, error) {
	creds, ok := s.credentials[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return creds.User, nil
}

func (s *credentialStoreStub) SetPasswordHash(_ context.Context, username, passwordHash string, _ time.Time) error {
	if s.setErr != nil {
		return s.setErr
	}
	creds, ok := s.credentials[username]
	if !ok {
		return ErrNotFound
	}
	creds.PasswordHash = passwordHash
	s.credentials[username] = creds
	s.setCalls++
	return nil
}

type sessionRepositoryStub struct {
	sessions    map[string]Session
	createErr   error
	deleteErr   error
	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessions: make(map[string]Session)}
}

func (s *sessionRepositoryStub) seed(session Session) {
	s.sessions[session.Token] = session
}

func (s *sessionRepositoryStub) CreateSession(_ context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionRepositoryStub) GetSession(_ context.Context, token string) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepositoryStub) RevokeSession(_ context.Context, token string, revokedAt time.Time) (Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return session, nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	s.deleteCalls = append(s.deleteCalls, reference)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for token, session := range s.sessions {
		if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

type activityRepositoryStub struct {
	mu         sync.Mutex
	activities map[int64]Activity
	nextID     int64
	createErr  error
	updateErr  error
	deleteErr  error
	listErr    error
}

func newActivityRepositoryStub() *activityRepositoryStub {
	return &activityRepositoryStub{activities: make(map[int64]Activity), nextID: 1}
}

func (s *activityRepositoryStub) seed(activity Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if activity.ID >= s.nextID {
		s.nextID = activity.ID + 1
	}
	s.activities[activity.ID] = activity
}

func (s *activityRepositoryStub) CreateActivity(_ context.Context, activity Activity) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return Activity{}, s.createErr
	}
	activity.ID = s.nextID
	s.nextID++
	s.activities[activity.ID] = activity
	return activity, nil
}

func (s *activityRepositoryStub) GetActivity(_ context.Context, id int64) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activity, ok := s.activities[id]
	if !ok {
		return Activity{}, ErrNotFound
	}
	return activity, nil
}

func (s *activityRepositoryStub) UpdateActivity(_ context.Context, activity Activity) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return Activity{}, s.updateErr
	}
	if _, ok := s.activities[activity.ID]; !ok {
		return Activity{}, ErrNotFound
	}
	s.activities[activity.ID] = activity
	return activity, nil
}

func (s *activityRepositoryStub) DeleteActivity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.activities[id]; !ok {
		return ErrNotFound
	}
	delete(s.activities, id)
	return nil
}

func (s *activityRepositoryStub) ListActivities(_ context.Context, query ActivityQuery, _ PageRequest) ([]Activity, PageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, PageInfo{}, s.listErr
	}
	out := make([]Activity, 0, len(s.activities))
	for _, activity := range s.activities {
		if query.Week != nil && activity.Week != *query.Week {
			continue
		}
		if query.WeekDay != nil && (activity.WeekDay == nil || *activity.WeekDay != *query.WeekDay) {
			continue
		}
		if query.MaintainerUsername != nil && (activity.MaintainerUsername == nil || *activity.MaintainerUsername != *query.MaintainerUsername) {
			continue
		}
		out = append(out, activity)
	}
	return out, PageInfo{CurrentPage: 1, PageSize: len(out), TotalItems: len(out), TotalPages: 1}, nil
}

func (s *activityRepositoryStub) ListAssignedOnDay(_ context.Context, username string, week int, weekDay scheduler.Weekday, excludeID int64) ([]Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Activity
	for _, activity := range s.activities {
		if excludeID != 0 && activity.ID == excludeID {
			continue
		}
		if activity.Week != week || activity.MaintainerUsername == nil || *activity.MaintainerUsername != username {
			continue
		}
		if activity.WeekDay == nil || *activity.WeekDay != weekDay {
			continue
		}
		out = append(out, activity)
	}
	return out, nil
}

type availabilityRepositoryStub struct {
	blocks    map[int64]AvailabilityBlock
	nextID    int64
	createErr error
	deleteErr error
}

func newAvailabilityRepositoryStub() *availabilityRepositoryStub {
	return &availabilityRepositoryStub{blocks: make(map[int64]AvailabilityBlock), nextID: 1}
}

func (s *availabilityRepositoryStub) seed(block AvailabilityBlock) {
	if block.ID >= s.nextID {
		s.nextID = block.ID + 1
	}
	s.blocks[block.ID] = block
}

func (s *availabilityRepositoryStub) CreateBlock(_ context.Context, block AvailabilityBlock) (AvailabilityBlock, error) {
	if s.createErr != nil {
		return AvailabilityBlock{}, s.createErr
	}
	block.ID = s.nextID
	s.nextID++
	s.blocks[block.ID] = block
	return block, nil
}

func (s *availabilityRepositoryStub) GetBlock(_ context.Context, id int64) (AvailabilityBlock, error) {
	block, ok := s.blocks[id]
	if !ok {
		return AvailabilityBlock{}, ErrNotFound
	}
	return block, nil
}

func (s *availabilityRepositoryStub) ListBlocksForMaintainer(_ context.Context, username string) ([]AvailabilityBlock, error) {
	var out []AvailabilityBlock
	for _, block := range s.blocks {
		if block.MaintainerUsername == username {
			out = append(out, block)
		}
	}
	return out, nil
}

func (s *availabilityRepositoryStub) ListBlocksForMaintainerOnDay(_ context.Context, username string, weekDay scheduler.Weekday) ([]AvailabilityBlock, error) {
	var out []AvailabilityBlock
	for _, block := range s.blocks {
		if block.MaintainerUsername == username && block.WeekDay == weekDay {
			out = append(out, block)
		}
	}
	return out, nil
}

func (s *availabilityRepositoryStub) DeleteBlock(_ context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.blocks[id]; !ok {
		return ErrNotFound
	}
	delete(s.blocks, id)
	return nil
}

type userDirectoryStub struct {
	users map[string]User
}

func newUserDirectoryStub(users ...User) *userDirectoryStub {
	stub := &userDirectoryStub{users: make(map[string]User)}
	for _, user := range users {
		stub.users[user.Username] = user
	}
	return stub
}

func (s *userDirectoryStub) GetUser(_ context.Context, username string) (User, error) {
	user, ok := s.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *userDirectoryStub) ListMaintainers(_ context.Context) ([]User, error) {
	var out []User
	for _, user := range s.users {
		if user.Role == RoleMaintainer {
			out = append(out, user)
		}
	}
	return out, nil
}

func plaintextVerifier(hashedPassword, password string) error {
	if hashedPassword == password {
		return nil
	}
	return ErrInvalidCredentials
}

func strptr(value string) *string { return &value }

func intptr(value int) *int { return &value }
