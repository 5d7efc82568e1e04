package practice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store provides persistence for therapist profiles.
type Store struct {
	redis              *redis.Client
	autoConfirmDefault bool
}

// NewStore creates a new profile store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

// WithAutoConfirmDefault sets the auto-confirm flag used for therapists
// that have not saved a profile yet.
func (s *Store) WithAutoConfirmDefault(autoConfirm bool) *Store {
	s.autoConfirmDefault = autoConfirm
	return s
}

func (s *Store) key(therapistID string) string {
	return fmt.Sprintf("practice:profile:%s", therapistID)
}

// Get retrieves a therapist profile, returning the default if not found.
func (s *Store) Get(ctx context.Context, therapistID string) (*Profile, error) {
	data, err := s.redis.Get(ctx, s.key(therapistID)).Bytes()
	if err == redis.Nil {
		profile := DefaultProfile(therapistID)
		profile.AutoConfirm = s.autoConfirmDefault
		return profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("practice: get profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("practice: unmarshal profile: %w", err)
	}
	return &profile, nil
}

// Set saves a therapist profile.
func (s *Store) Set(ctx context.Context, profile *Profile) error {
	if profile.TherapistID == "" {
		return fmt.Errorf("practice: profile requires therapist id")
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("practice: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(profile.TherapistID), data, 0).Err(); err != nil {
		return fmt.Errorf("practice: set profile: %w", err)
	}
	return nil
}
