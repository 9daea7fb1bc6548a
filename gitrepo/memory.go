package gitrepo

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository is an in-memory Repository implementation intended for
// tests and examples. Files are keyed by repo, branch, and path.
type MemoryRepository struct {
	mu       sync.RWMutex
	files    map[string][]byte
	shas     map[string]string
	branches map[string]map[string]string // repo -> branch -> base
	pulls    []PullRequest
	writable map[string]bool

	// AccessErr, when set, makes every write-access probe fail. Permission
	// checks must treat this as no access.
	AccessErr error
	// ReadErr, when set, fails every read; used to exercise fallback paths.
	ReadErr error

	nextPull int
}

// NewMemoryRepository constructs an empty in-memory host.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		files:    map[string][]byte{},
		shas:     map[string]string{},
		branches: map[string]map[string]string{},
		writable: map[string]bool{},
		nextPull: 1,
	}
}

// SetWritable marks a repository as granting push access.
func (m *MemoryRepository) SetWritable(repo string, writable bool) {
	m.mu.Lock()
	m.writable[repo] = writable
	m.mu.Unlock()
}

// Put seeds a file directly, bypassing the Repository surface.
func (m *MemoryRepository) Put(repo, branch, path string, content []byte) {
	m.mu.Lock()
	key := fileKey(repo, branch, path)
	m.files[key] = append([]byte(nil), content...)
	m.shas[key] = fmt.Sprintf("sha-%d", len(content))
	m.mu.Unlock()
}

// PullRequests returns the review requests opened so far.
func (m *MemoryRepository) PullRequests() []PullRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PullRequest, len(m.pulls))
	copy(out, m.pulls)
	return out
}

func (m *MemoryRepository) GetFileContent(_ context.Context, repo, path, branch string) (FileContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return FileContent{}, m.ReadErr
	}
	key := fileKey(repo, branch, path)
	content, ok := m.files[key]
	if !ok {
		return FileContent{}, notFound(repo, path, branch)
	}
	return FileContent{Content: append([]byte(nil), content...), SHA: m.shas[key]}, nil
}

func (m *MemoryRepository) CreateFile(_ context.Context, repo, path string, content []byte, branch, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fileKey(repo, branch, path)
	m.files[key] = append([]byte(nil), content...)
	m.shas[key] = fmt.Sprintf("sha-%d-%d", len(content), len(m.files))
	return nil
}

func (m *MemoryRepository) UpdateFile(_ context.Context, repo, path string, content []byte, _, branch, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fileKey(repo, branch, path)
	if _, ok := m.files[key]; !ok {
		return notFound(repo, path, branch)
	}
	m.files[key] = append([]byte(nil), content...)
	m.shas[key] = fmt.Sprintf("sha-%d-%d", len(content), len(m.files))
	return nil
}

func (m *MemoryRepository) CreateBranch(_ context.Context, repo, from, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.branches[repo] == nil {
		m.branches[repo] = map[string]string{}
	}
	m.branches[repo][name] = from

	// A new branch starts with the source branch's files.
	prefix := repo + "\x00" + from + "\x00"
	for key, content := range m.files {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			path := key[len(prefix):]
			newKey := fileKey(repo, name, path)
			m.files[newKey] = append([]byte(nil), content...)
			m.shas[newKey] = m.shas[key]
		}
	}
	return nil
}

func (m *MemoryRepository) CreatePullRequest(_ context.Context, repo, title, _, head, base string) (PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pull := PullRequest{
		Number: m.nextPull,
		URL:    fmt.Sprintf("https://example.invalid/%s/pull/%d", repo, m.nextPull),
	}
	m.nextPull++
	m.pulls = append(m.pulls, pull)
	_ = title
	_ = head
	_ = base
	return pull, nil
}

func (m *MemoryRepository) HasWriteAccessToRepository(_ context.Context, repo string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.AccessErr != nil {
		return false, m.AccessErr
	}
	return m.writable[repo], nil
}

func fileKey(repo, branch, path string) string {
	return repo + "\x00" + branch + "\x00" + path
}
