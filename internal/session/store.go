// Package session owns the per-user mutable state for the assistant:
// the cart and the conversation history handed to the generative
// fallback. State lives for the process lifetime only.
package session

import (
	"sync"

	"storefront-agent/internal/domain"
)

// Store maps user IDs to their session. The outer lock guards the map;
// each session carries its own mutex so read-modify-write cycles on
// one user serialize while distinct users proceed in parallel.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*userSession
	maxHistory int
}

type userSession struct {
	mu      sync.Mutex
	cart    []domain.Product
	history []domain.ChatMessage
}

// NewStore creates an empty store. maxHistoryMessages bounds the
// conversation history kept per user; zero or negative disables the
// bound.
func NewStore(maxHistoryMessages int) *Store {
	return &Store{
		sessions:   make(map[string]*userSession),
		maxHistory: maxHistoryMessages,
	}
}

// session returns the user's session, creating it on first use.
func (s *Store) session(userID string) *userSession {
	s.mu.RLock()
	us, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return us
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if us, ok = s.sessions[userID]; ok {
		return us
	}
	us = &userSession{}
	s.sessions[userID] = us
	return us
}

// peek returns the session without creating one. Read paths use this
// so "no session yet" stays distinct from "empty session".
func (s *Store) peek(userID string) (*userSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	us, ok := s.sessions[userID]
	return us, ok
}

// AddToCart appends a product reference to the user's cart, creating
// the cart lazily on first add. Duplicates are permitted; enumeration
// collapses them.
func (s *Store) AddToCart(userID string, p domain.Product) {
	us := s.session(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	us.cart = append(us.cart, p)
}

// RemoveFromCart removes the first cart item, in cart order, whose
// normalized name is contained in normalizedQuery per the match
// function. Exactly one occurrence is removed. The removed product is
// returned so callers can name it in the confirmation.
func (s *Store) RemoveFromCart(userID string, match func(domain.Product) bool) (domain.Product, bool) {
	us, ok := s.peek(userID)
	if !ok {
		return domain.Product{}, false
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	for i, item := range us.cart {
		if match(item) {
			us.cart = append(us.cart[:i], us.cart[i+1:]...)
			return item, true
		}
	}
	return domain.Product{}, false
}

// CartItems returns a copy of the user's cart in insertion order,
// duplicates included.
func (s *Store) CartItems(userID string) []domain.Product {
	us, ok := s.peek(userID)
	if !ok {
		return nil
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	out := make([]domain.Product, len(us.cart))
	copy(out, us.cart)
	return out
}

// UniqueCartItems returns the cart deduplicated by product name,
// preserving first-seen order.
func (s *Store) UniqueCartItems(userID string) []domain.Product {
	items := s.CartItems(userID)
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	unique := items[:0]
	for _, item := range items {
		if _, dup := seen[item.Name]; dup {
			continue
		}
		seen[item.Name] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

// History returns a copy of the user's conversation history. A nil
// result means a fresh conversation.
func (s *Store) History(userID string) []domain.ChatMessage {
	us, ok := s.peek(userID)
	if !ok {
		return nil
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	if len(us.history) == 0 {
		return nil
	}
	out := make([]domain.ChatMessage, len(us.history))
	copy(out, us.history)
	return out
}

// SetHistory unconditionally replaces the user's conversation history,
// trimming to the configured bound so long conversations cannot grow
// without limit.
func (s *Store) SetHistory(userID string, history []domain.ChatMessage) {
	if s.maxHistory > 0 && len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	us := s.session(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	us.history = history
}
