package token

import (
	"encoding/json"
	"slices"
	"sort"

	"tenant-auth-core/internal/model"
)

type Scope string

const (
	ScopeAdmin   Scope = "ADMIN"
	ScopeManager Scope = "MANAGER"
	ScopeUser    Scope = "USER"
	ScopeClient  Scope = "CLIENT"
)

// ScopeSet is a set of capabilities with exact membership tests. It is never
// searched by substring, so "ADMIN_VIEWER" does not grant "ADMIN".
type ScopeSet struct {
	items map[Scope]struct{}
}

func NewScopeSet(scopes ...Scope) ScopeSet {
	items := make(map[Scope]struct{}, len(scopes))
	for _, s := range scopes {
		if s == "" {
			continue
		}
		items[s] = struct{}{}
	}
	return ScopeSet{items: items}
}

// ScopesFor derives the capability set of a principal.
func ScopesFor(p model.Principal) ScopeSet {
	switch v := p.(type) {
	case model.UserPrincipal:
		return NewScopeSet(Scope(v.Role))
	case model.ClientPrincipal:
		return NewScopeSet(ScopeClient)
	}
	return NewScopeSet()
}

func (s ScopeSet) Has(scope Scope) bool {
	_, ok := s.items[scope]
	return ok
}

func (s ScopeSet) HasAny(scopes ...Scope) bool {
	return slices.ContainsFunc(scopes, s.Has)
}

func (s ScopeSet) Len() int {
	return len(s.items)
}

// Slice returns the members in sorted order.
func (s ScopeSet) Slice() []string {
	out := make([]string, 0, len(s.items))
	for scope := range s.items {
		out = append(out, string(scope))
	}
	sort.Strings(out)
	return out
}

func (s ScopeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *ScopeSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	scopes := make([]Scope, 0, len(raw))
	for _, r := range raw {
		scopes = append(scopes, Scope(r))
	}
	*s = NewScopeSet(scopes...)
	return nil
}
