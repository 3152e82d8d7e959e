// Package vdoc stages the virtual documents handed to foreign language
// services.
package vdoc

import (
	"container/list"
	"net/url"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
)

const Scheme = "embedded-content"

var ErrInvalidURI = errors.Base("not a virtual document uri")

// URI builds embedded-content://<lang>/<escaped original>.<lang>.
func URI(lang, original string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(original), "+", "%20")
	return Scheme + "://" + lang + "/" + escaped + "." + lang
}

// ParseURI splits a virtual document uri into its language and original uri.
func ParseURI(uri string) (lang, original string, err error) {
	rest, ok := strings.CutPrefix(uri, Scheme+"://")
	if !ok {
		return "", "", errors.WithDetails(ErrInvalidURI, "uri", uri)
	}
	lang, escaped, ok := strings.Cut(rest, "/")
	if !ok || lang == "" {
		return "", "", errors.WithDetails(ErrInvalidURI, "uri", uri)
	}
	escaped, ok = strings.CutSuffix(escaped, "."+lang)
	if !ok {
		return "", "", errors.WithDetails(ErrInvalidURI, "uri", uri)
	}
	original, err = url.QueryUnescape(escaped)
	if err != nil {
		return "", "", errors.WithDetails(ErrInvalidURI, "uri", uri, "cause", err.Error())
	}
	return lang, original, nil
}

// Entry is one staged virtual document.
type Entry struct {
	URI      string
	Original string
	Lang     string
	Version  int32
	Content  string
}

// Store is a bounded map of staged virtual documents. When full, the entry
// staged least recently is dropped.
type Store struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // of *Entry, most recent first
	entries  map[string]*list.Element
}

func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Stage records content for the given original document and language and
// returns its virtual uri.
func (s *Store) Stage(original, lang string, version int32, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	uri := URI(lang, original)
	entry := &Entry{URI: uri, Original: original, Lang: lang, Version: version, Content: content}
	if el, ok := s.entries[uri]; ok {
		el.Value = entry
		s.order.MoveToFront(el)
		return uri
	}

	s.entries[uri] = s.order.PushFront(entry)
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*Entry).URI)
	}
	return uri
}

// Get returns the entry staged under a virtual uri.
func (s *Store) Get(uri string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[uri]
	if !ok {
		return Entry{}, false
	}
	return *el.Value.(*Entry), true
}

// Evict drops every entry staged for the original document and returns how
// many were dropped.
func (s *Store) Evict(original string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if entry := el.Value.(*Entry); entry.Original == original {
			s.order.Remove(el)
			delete(s.entries, entry.URI)
			n++
		}
		el = next
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
