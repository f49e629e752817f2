package model

import "strings"

// Voter identifies the person behind a vote. Either a nickname or a
// first/last name pair is expected.
type Voter struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
}

// Key returns the normalized identity used for equality: every part is
// trimmed and lower-cased. A nickname wins over the name pair.
func (v Voter) Key() string {
	if nick := normalize(v.Nickname); nick != "" {
		return "nick:" + nick
	}
	first, last := normalize(v.FirstName), normalize(v.LastName)
	if first == "" && last == "" {
		return ""
	}
	return first + "|" + last
}

// Empty reports whether the voter carries no usable identity.
func (v Voter) Empty() bool { return v.Key() == "" }

// Same reports whether two voters share the same normalized identity.
func (v Voter) Same(o Voter) bool { return v.Key() == o.Key() }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
