package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	logx "homecmd/pkg/logx"
)

// fileStore keeps a JSON document keyed by reminder id:
//
//	{"1": {"text": "walk the dog at 6pm", "time": "6pm", "created": "..."}}
//
// Every mutation rewrites the whole document through a temp file and a
// rename, so a crash leaves either the old or the new content.
type fileStore struct {
	*memStore
	log  logx.Logger
	path string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{memStore: newMemory(), log: log, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	log.Debug("reminder file loaded", logx.String("path", path), logx.Int("count", len(s.items)))
	return s, nil
}

func (s *fileStore) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	var doc map[string]Reminder
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("storage: parse %s: %w", s.path, err)
	}
	for k, r := range doc {
		id, err := strconv.Atoi(k)
		if err != nil || id <= 0 {
			s.log.Warn("skipping reminder with bad id", logx.String("id", k))
			continue
		}
		r.ID = id
		s.items[id] = r
		if id > s.last {
			s.last = id
		}
	}
	return nil
}

func (s *fileStore) AddReminder(ctx context.Context, text string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.last
	r, err := s.addLocked(text)
	if err != nil {
		return r, err
	}
	if err := s.saveLocked(); err != nil {
		delete(s.items, r.ID)
		s.last = last
		return Reminder{}, err
	}
	return r, nil
}

func (s *fileStore) DeleteReminder(ctx context.Context, id int) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.deleteLocked(id)
	if err != nil {
		return r, err
	}
	return r, s.restoreOnErr(r, s.saveLocked())
}

func (s *fileStore) DeleteReminderByText(ctx context.Context, ref string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.deleteTextLocked(ref)
	if err != nil {
		return r, err
	}
	return r, s.restoreOnErr(r, s.saveLocked())
}

func (s *fileStore) restoreOnErr(r Reminder, err error) error {
	if err != nil {
		s.items[r.ID] = r
	}
	return err
}

func (s *fileStore) saveLocked() error {
	doc := make(map[string]Reminder, len(s.items))
	for id, r := range s.items {
		doc[strconv.Itoa(id)] = r
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
