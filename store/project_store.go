package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"mabletask/tracker/models"
)

type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore creates a new ProjectStore instance.
func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// keyPrefixLen is how much of the raw key is stored in clear for lookup; the
// rest is only ever compared against the bcrypt hash.
const keyPrefixLen = 8

// CreateProject inserts a new project with its API key stored hashed.
func (s *ProjectStore) CreateProject(ctx context.Context, name, rawKey string) (*models.Project, error) {
	if len(rawKey) <= keyPrefixLen {
		return nil, fmt.Errorf("project key too short")
	}

	hashedKey, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash project key: %w", err)
	}

	project := &models.Project{}
	query := `
		INSERT INTO projects (name, key_prefix, hashed_key)
		VALUES ($1, $2, $3)
		RETURNING id, name, key_prefix, created_at, updated_at;
	`
	err = s.db.QueryRowContext(ctx, query, name, rawKey[:keyPrefixLen], hashedKey).Scan(
		&project.ID,
		&project.Name,
		&project.KeyPrefix,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Printf("Project created in DB: ID=%d, Name=%s", project.ID, project.Name)
	return project, nil
}

// Authenticate resolves a raw project key to its project. Lookup goes by key
// prefix, then the full key is checked against the stored hash.
func (s *ProjectStore) Authenticate(ctx context.Context, rawKey string) (*models.Project, error) {
	if len(rawKey) <= keyPrefixLen {
		return nil, fmt.Errorf("invalid project key")
	}

	project := &models.Project{}
	query := `
		SELECT id, name, key_prefix, hashed_key, created_at, updated_at
		FROM projects
		WHERE key_prefix = $1;
	`
	err := s.db.QueryRowContext(ctx, query, rawKey[:keyPrefixLen]).Scan(
		&project.ID,
		&project.Name,
		&project.KeyPrefix,
		&project.HashedKey,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("unknown project key")
		}
		return nil, fmt.Errorf("failed to look up project: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(project.HashedKey, []byte(rawKey)); err != nil {
		return nil, fmt.Errorf("invalid project key")
	}

	return project, nil
}
