package favorites

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"medley/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUserIDRequired     = errors.New("user id is required")
	ErrIDRequired         = errors.New("id is required")
	ErrMediaTypeRequired  = errors.New("media type is required")
	ErrMediaTypeInvalid   = errors.New("invalid media type")
	ErrIdentifierRequired = errors.New("id and media type are required")
)

// Invalidator is notified when a user's favorites set changes so dependent
// caches can drop stale state. Notification is best-effort: failures are
// logged here and never surface to the mutation.
type Invalidator interface {
	InvalidateUser(userID string)
}

// Service manages persistence and retrieval of user favorites.
type Service struct {
	mu          sync.RWMutex
	path        string
	items       map[string]map[string]models.FavoriteItem
	invalidator Invalidator
}

// NewService creates a favorites service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create favorites dir: %w", err)
	}

	svc := &Service{
		path:  filepath.Join(storageDir, "favorites.json"),
		items: make(map[string]map[string]models.FavoriteItem),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// SetInvalidator wires the cache invalidation hook. Set once at startup.
func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

// List returns all favorites sorted by most recent additions first.
func (s *Service) List(userID string) ([]models.FavoriteItem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.FavoriteItem, 0)
	if perUser, ok := s.items[userID]; ok {
		items = make([]models.FavoriteItem, 0, len(perUser))
		for _, item := range perUser {
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].Key() < items[j].Key()
		}
		return items[i].AddedAt.After(items[j].AddedAt)
	})

	return items, nil
}

// AddOrUpdate inserts a new favorite or updates metadata for an existing one.
func (s *Service) AddOrUpdate(userID string, input models.FavoriteUpsert) (models.FavoriteItem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.FavoriteItem{}, ErrUserIDRequired
	}

	if strings.TrimSpace(input.ID) == "" {
		return models.FavoriteItem{}, ErrIDRequired
	}
	if strings.TrimSpace(string(input.Type)) == "" {
		return models.FavoriteItem{}, ErrMediaTypeRequired
	}

	mediaType := models.MediaType(strings.ToLower(strings.TrimSpace(string(input.Type))))
	if !mediaType.IsValid() {
		return models.FavoriteItem{}, ErrMediaTypeInvalid
	}

	s.mu.Lock()

	perUser := s.ensureUserLocked(userID)

	key := string(mediaType) + ":" + input.ID
	item, exists := perUser[key]

	if !exists {
		item = models.FavoriteItem{
			ID:      input.ID,
			Type:    mediaType,
			AddedAt: time.Now().UTC(),
		}
	}

	item.Type = mediaType

	if strings.TrimSpace(input.Title) != "" {
		item.Title = input.Title
	}
	if input.Year != 0 {
		item.Year = input.Year
	}
	if strings.TrimSpace(input.PosterURL) != "" {
		item.PosterURL = input.PosterURL
	}
	if strings.TrimSpace(input.Author) != "" {
		item.Author = input.Author
	}
	if strings.TrimSpace(input.Subject) != "" {
		item.Subject = input.Subject
	}

	perUser[key] = item

	if err := s.saveLocked(); err != nil {
		s.mu.Unlock()
		return models.FavoriteItem{}, err
	}
	s.mu.Unlock()

	s.notifyInvalidate(userID)

	return item, nil
}

// Remove deletes a favorite. It reports whether anything was removed.
func (s *Service) Remove(userID string, mediaType models.MediaType, id string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrUserIDRequired
	}

	mediaType = models.MediaType(strings.ToLower(strings.TrimSpace(string(mediaType))))
	if mediaType == "" || strings.TrimSpace(id) == "" {
		return false, ErrIdentifierRequired
	}

	s.mu.Lock()

	perUser := s.ensureUserLocked(userID)

	key := string(mediaType) + ":" + id
	if _, exists := perUser[key]; !exists {
		s.mu.Unlock()
		return false, nil
	}

	delete(perUser, key)

	if err := s.saveLocked(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	s.notifyInvalidate(userID)

	return true, nil
}

// notifyInvalidate tells the cache a user's favorites changed. This is the
// only place invalidation failures are handled; the mutation has already
// been persisted by the time it runs.
func (s *Service) notifyInvalidate(userID string) {
	if s.invalidator == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[favorites] cache invalidation panicked for user %s: %v", userID, r)
		}
	}()
	s.invalidator.InvalidateUser(userID)
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.items = make(map[string]map[string]models.FavoriteItem)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open favorites: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read favorites: %w", err)
	}
	if len(data) == 0 {
		s.items = make(map[string]map[string]models.FavoriteItem)
		return nil
	}

	var multi map[string][]models.FavoriteItem
	if err := json.Unmarshal(data, &multi); err == nil {
		s.items = make(map[string]map[string]models.FavoriteItem, len(multi))
		for userID, items := range multi {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				continue
			}
			perUser := make(map[string]models.FavoriteItem, len(items))
			for _, item := range items {
				normalised := normaliseItem(item)
				perUser[normalised.Key()] = normalised
			}
			s.items[userID] = perUser
		}
		return nil
	}

	// Legacy single-profile format: a bare item array owned by the default user.
	var legacy []models.FavoriteItem
	if err := json.Unmarshal(data, &legacy); err != nil {
		return fmt.Errorf("decode favorites: %w", err)
	}

	perUser := make(map[string]models.FavoriteItem, len(legacy))
	for _, item := range legacy {
		normalised := normaliseItem(item)
		perUser[normalised.Key()] = normalised
	}

	s.items = map[string]map[string]models.FavoriteItem{
		models.DefaultUserID: perUser,
	}

	return nil
}

func (s *Service) saveLocked() error {
	byUser := make(map[string][]models.FavoriteItem, len(s.items))
	for userID, collection := range s.items {
		items := make([]models.FavoriteItem, 0, len(collection))
		for _, item := range collection {
			items = append(items, item)
		}

		sort.Slice(items, func(i, j int) bool {
			if items[i].AddedAt.Equal(items[j].AddedAt) {
				return items[i].Key() < items[j].Key()
			}
			return items[i].AddedAt.Before(items[j].AddedAt)
		})

		byUser[userID] = items
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create favorites temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(byUser); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode favorites: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync favorites: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close favorites temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace favorites file: %w", err)
	}

	return nil
}

func (s *Service) ensureUserLocked(userID string) map[string]models.FavoriteItem {
	perUser, ok := s.items[userID]
	if !ok {
		perUser = make(map[string]models.FavoriteItem)
		s.items[userID] = perUser
	}
	return perUser
}

func normaliseItem(item models.FavoriteItem) models.FavoriteItem {
	item.Type = models.MediaType(strings.ToLower(strings.TrimSpace(string(item.Type))))
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	return item
}
