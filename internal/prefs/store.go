package prefs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	yaml "gopkg.in/yaml.v3"
)

// Store persists string preferences by key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// FileStore keeps preferences in a small YAML document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	m[key] = value
	return s.write(m)
}

func (s *FileStore) read() (map[string]string, error) {
	m := make(map[string]string)
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", s.path, err)
	}
	if m == nil {
		m = make(map[string]string)
	}
	return m, nil
}

func (s *FileStore) write(m map[string]string) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// RedisStore keeps preferences in one hash per profile.
type RedisStore struct {
	rdb     *redis.Client
	profile string
}

func NewRedisStore(rdb *redis.Client, profile string) *RedisStore {
	if strings.TrimSpace(profile) == "" {
		profile = "default"
	}
	return &RedisStore{rdb: rdb, profile: strings.TrimSpace(profile)}
}

// NewRedisStoreFromURL parses a redis:// URL.
func NewRedisStoreFromURL(url, profile string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opt), profile), nil
}

func (s *RedisStore) key() string { return "checkers:prefs:" + s.profile }

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, s.key(), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.rdb.HSet(ctx, s.key(), key, value).Err()
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
