package service

import (
	"context"
	"fmt"

	"github.com/templui/filesmanager/internal/repository"
)

// AliveFunc reports whether a backing store answers
type AliveFunc func(ctx context.Context) bool

type Status struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// StatusService reports store liveness and record counts. The "redis" key
// keeps its historical name and reflects whichever session store is configured.
type StatusService struct {
	sessionAlive   AliveFunc
	dbAlive        AliveFunc
	userRepository repository.UserRepository
	fileRepository repository.FileRepository
}

func NewStatusService(sessionAlive, dbAlive AliveFunc, userRepository repository.UserRepository, fileRepository repository.FileRepository) *StatusService {
	return &StatusService{
		sessionAlive:   sessionAlive,
		dbAlive:        dbAlive,
		userRepository: userRepository,
		fileRepository: fileRepository,
	}
}

func (s *StatusService) Status(ctx context.Context) Status {
	return Status{
		Redis: s.sessionAlive(ctx),
		DB:    s.dbAlive(ctx),
	}
}

func (s *StatusService) Stats(ctx context.Context) (Stats, error) {
	users, err := s.userRepository.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count users: %w", err)
	}

	files, err := s.fileRepository.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count files: %w", err)
	}

	return Stats{Users: users, Files: files}, nil
}
