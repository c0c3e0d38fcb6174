package jsonfile

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/habit-tracker/internal/apperror"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository"
)

var _ repository.UserRepository = (*Store)(nil)

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.doc.Users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}

	user.ID = xid.New().String()
	user.CreatedAt = time.Now()

	s.doc.Users[user.ID] = *user
	if err := s.save(); err != nil {
		delete(s.doc.Users, user.ID)
		return err
	}
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.doc.Users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.doc.Users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (s *Store) UpsertByGitHubID(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.GitHubID == 0 {
		return apperror.ValidationFailed("githubId", "GitHub ID is required for upsert")
	}

	for id, u := range s.doc.Users {
		if u.GitHubID == user.GitHubID {
			prev := u
			u.Name = user.Name
			u.Email = user.Email
			s.doc.Users[id] = u
			if err := s.save(); err != nil {
				s.doc.Users[id] = prev
				return err
			}
			*user = u
			return nil
		}
	}

	user.ID = xid.New().String()
	user.CreatedAt = time.Now()
	s.doc.Users[user.ID] = *user
	if err := s.save(); err != nil {
		delete(s.doc.Users, user.ID)
		return err
	}
	return nil
}
