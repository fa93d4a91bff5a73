// Package credentials reads and writes the flat `username:hash` file used by
// the reverse proxy for HTTP Basic authentication.
package credentials

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/oarkflow/usermgr/pkg/models"
)

var (
	ErrDuplicateUser   = errors.New("username already exists")
	ErrUserNotFound    = errors.New("username not found")
	ErrInvalidUsername = errors.New("username must not be empty or contain ':' or line breaks")
	ErrInvalidHash     = errors.New("password hash must not be empty or contain line breaks")
)

// FileStore is safe for concurrent use within a process; other processes
// writing the same file are serialized through flock.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validUsername(username string) bool {
	return username != "" && !strings.ContainsAny(username, ":\r\n")
}

// List returns every entry in file order. A missing file is reported as an
// error wrapping os.ErrNotExist.
func (s *FileStore) List() ([]models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open credentials file: %w", err)
	}
	defer f.Close()
	if err := lockShared(f); err != nil {
		return nil, fmt.Errorf("lock credentials file: %w", err)
	}
	defer unlock(f)

	return parse(f)
}

func (s *FileStore) Exists(username string) (bool, error) {
	entries, err := s.List()
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// Add appends a new entry. The file and its directory are created when
// missing.
func (s *FileStore) Add(username, passwordHash string) error {
	if !validUsername(username) {
		return ErrInvalidUsername
	}
	if passwordHash == "" || strings.ContainsAny(passwordHash, "\r\n") {
		return ErrInvalidHash
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return fmt.Errorf("open credentials file: %w", err)
	}
	defer f.Close()
	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("lock credentials file: %w", err)
	}
	defer unlock(f)

	entries, err := parse(f)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Username == username {
			return ErrDuplicateUser
		}
	}

	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek credentials file: %w", err)
	}
	line := username + ":" + passwordHash + "\n"
	if end > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, end-1); err != nil {
			return fmt.Errorf("read credentials file: %w", err)
		}
		if last[0] != '\n' {
			line = "\n" + line
		}
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return f.Sync()
}

// Delete rewrites the file without the lines belonging to username.
func (s *FileStore) Delete(username string) error {
	if !validUsername(username) {
		return ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open credentials file: %w", err)
	}
	defer f.Close()
	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("lock credentials file: %w", err)
	}
	defer unlock(f)

	raw, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}

	var kept bytes.Buffer
	found := false
	for _, line := range strings.SplitAfter(string(raw), "\n") {
		if line == "" {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), ":")
		if name == username {
			found = true
			continue
		}
		kept.WriteString(line)
	}
	if !found {
		return ErrUserNotFound
	}

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate credentials file: %w", err)
	}
	if _, err := f.WriteAt(kept.Bytes(), 0); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return f.Sync()
}

func parse(r io.Reader) ([]models.Credential, error) {
	var entries []models.Credential
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, hash, _ := strings.Cut(line, ":")
		entries = append(entries, models.Credential{Username: name, PasswordHash: hash})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return entries, nil
}
