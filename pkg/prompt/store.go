// Package prompt keeps versioned guideline texts and feeds the contract's
// Guidelines hook. Guidelines are linted on save so a run never ships an
// empty or secrets-bearing system prompt.
package prompt

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"sync"
	"text/template"
)

// Guideline is a versioned guidance artifact injected as system guidance.
type Guideline struct {
	Name    string
	Version int
	Body    string
	Meta    map[string]string
}

// Issue describes a lint finding.
type Issue struct {
	Rule    string
	Message string
}

// Lint runs basic checks on a guideline before it is stored.
func Lint(g Guideline) []Issue {
	var issues []Issue
	if g.Name == "" {
		issues = append(issues, Issue{Rule: "name.required", Message: "name is required"})
	}
	if strings.TrimSpace(g.Body) == "" {
		issues = append(issues, Issue{Rule: "body.required", Message: "body is empty"})
	}
	if containsSecretLike(g.Body) {
		issues = append(issues, Issue{Rule: "security.secrets", Message: "body appears to contain secrets-like content"})
	}
	return issues
}

func containsSecretLike(s string) bool {
	lower := strings.ToLower(s)
	for _, needle := range []string{"aws_secret_access_key", "begin private key", "sk-"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

// Store is an in-memory versioned guideline store.
type Store struct {
	mu   sync.RWMutex
	data map[string][]Guideline // name -> versions (ascending)
}

func NewStore() *Store { return &Store{data: make(map[string][]Guideline)} }

var ErrLintFailed = errors.New("guideline failed lint checks")

// Save adds a new version. If name exists, version increments by 1; otherwise
// starts at 1. Lint failures return ErrLintFailed with the issues.
func (s *Store) Save(g Guideline) (Guideline, []Issue, error) {
	issues := Lint(g)
	if len(issues) > 0 {
		return Guideline{}, issues, ErrLintFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.data[g.Name]
	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1].Version + 1
	}
	ng := Guideline{Name: g.Name, Version: next, Body: g.Body, Meta: g.Meta}
	s.data[g.Name] = append(versions, ng)
	return ng, nil, nil
}

// Get retrieves a specific version; version==0 returns the latest.
func (s *Store) Get(name string, version int) (Guideline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.data[name]
	if len(versions) == 0 {
		return Guideline{}, false
	}
	if version <= 0 {
		return versions[len(versions)-1], true
	}
	i := sort.Search(len(versions), func(i int) bool { return versions[i].Version >= version })
	if i < len(versions) && versions[i].Version == version {
		return versions[i], true
	}
	return Guideline{}, false
}

// List returns all versions for a name in ascending order.
func (s *Store) List(name string) []Guideline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Guideline(nil), s.data[name]...)
}

// Render fills the latest version of name with vars via text/template.
// Missing guidelines render to "".
func (s *Store) Render(name string, vars map[string]any) (string, error) {
	g, ok := s.Get(name, 0)
	if !ok {
		return "", nil
	}
	t, err := template.New(name).Parse(g.Body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
