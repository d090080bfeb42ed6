// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

// Package flatfile is the YAML reference implementation of storage.Store,
// keeping one file per user, group and track under a base directory.
package flatfile

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gopkg.in/yaml.v3"

	"github.com/permtree/permtree/internal/storage"
)

const (
	usersDir  = "users"
	groupsDir = "groups"
	tracksDir = "tracks"

	fileExt = ".yml"

	writeRetryBase  = 50 * time.Millisecond
	writeRetryCount = 4
)

// Store implements storage.Store on a directory tree.
type Store struct {
	base string
}

var _ storage.Store = (*Store)(nil)

// New creates the backing directories and returns a Store.
func New(base string) (*Store, error) {
	for _, dir := range []string{usersDir, groupsDir, tracksDir} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			return nil, oops.Code("STORAGE_INIT_FAILED").
				With("dir", dir).Wrap(err)
		}
	}
	return &Store{base: base}, nil
}

// LoadUser implements storage.Store.
func (s *Store) LoadUser(ctx context.Context, id uuid.UUID) (*storage.UserRecord, error) {
	var rec storage.UserRecord
	ok, err := s.read(ctx, usersDir, id.String(), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// SaveUser implements storage.Store.
func (s *Store) SaveUser(ctx context.Context, rec *storage.UserRecord) error {
	return s.write(ctx, usersDir, rec.UUID, rec)
}

// LoadGroup implements storage.Store.
func (s *Store) LoadGroup(ctx context.Context, name string) (*storage.GroupRecord, error) {
	var rec storage.GroupRecord
	ok, err := s.read(ctx, groupsDir, name, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// LoadAllGroups implements storage.Store.
func (s *Store) LoadAllGroups(ctx context.Context) ([]*storage.GroupRecord, error) {
	names, err := s.list(groupsDir)
	if err != nil {
		return nil, err
	}
	out := make([]*storage.GroupRecord, 0, len(names))
	for _, name := range names {
		rec, err := s.LoadGroup(ctx, name)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SaveGroup implements storage.Store.
func (s *Store) SaveGroup(ctx context.Context, rec *storage.GroupRecord) error {
	return s.write(ctx, groupsDir, rec.Name, rec)
}

// DeleteGroup implements storage.Store.
func (s *Store) DeleteGroup(_ context.Context, name string) error {
	return s.remove(groupsDir, name)
}

// LoadTrack implements storage.Store.
func (s *Store) LoadTrack(ctx context.Context, name string) (*storage.TrackRecord, error) {
	var rec storage.TrackRecord
	ok, err := s.read(ctx, tracksDir, name, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// LoadAllTracks implements storage.Store.
func (s *Store) LoadAllTracks(ctx context.Context) ([]*storage.TrackRecord, error) {
	names, err := s.list(tracksDir)
	if err != nil {
		return nil, err
	}
	out := make([]*storage.TrackRecord, 0, len(names))
	for _, name := range names {
		rec, err := s.LoadTrack(ctx, name)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SaveTrack implements storage.Store.
func (s *Store) SaveTrack(ctx context.Context, rec *storage.TrackRecord) error {
	return s.write(ctx, tracksDir, rec.Name, rec)
}

// DeleteTrack implements storage.Store.
func (s *Store) DeleteTrack(_ context.Context, name string) error {
	return s.remove(tracksDir, name)
}

func (s *Store) path(dir, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", oops.Code("STORAGE_BAD_NAME").
			With("name", name).
			Errorf("invalid storage name %q", name)
	}
	return filepath.Join(s.base, dir, name+fileExt), nil
}

func (s *Store) read(_ context.Context, dir, name string, out any) (bool, error) {
	path, err := s.path(dir, name)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("STORAGE_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, oops.Code("STORAGE_DECODE_FAILED").With("path", path).Wrap(err)
	}
	return true, nil
}

// write marshals and replaces the file atomically (temp file + rename),
// retrying transient filesystem errors with backoff.
func (s *Store) write(ctx context.Context, dir, name string, in any) error {
	path, err := s.path(dir, name)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(in)
	if err != nil {
		return oops.Code("STORAGE_ENCODE_FAILED").With("path", path).Wrap(err)
	}

	backoff := retry.WithMaxRetries(writeRetryCount, retry.NewFibonacci(writeRetryBase))
	err = retry.Do(ctx, backoff, func(_ context.Context) error {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return retry.RetryableError(err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORAGE_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func (s *Store) remove(dir, name string) error {
	path, err := s.path(dir, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("STORAGE_DELETE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func (s *Store) list(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.base, dir))
	if err != nil {
		return nil, oops.Code("STORAGE_LIST_FAILED").With("dir", dir).Wrap(err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	return names, nil
}
