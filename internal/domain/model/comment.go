package model

import (
	"encoding/json"
	"time"
)

// Comment is the nested, wire-facing view of a comment and its replies.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Replies   []Comment `json:"replies,omitempty"`
}

// CommentNode is one arena entry. Children hold ids, never pointers.
type CommentNode struct {
	ID        string
	Text      string
	Author    string
	Timestamp time.Time
	Parent    string
	Children  []string
}

// CommentThread stores a comment forest as an arena keyed by id.
// It marshals to and from the nested []Comment form.
type CommentThread struct {
	Roots []string
	Nodes map[string]CommentNode
}

// Len returns the number of comments in the thread, replies included.
func (t *CommentThread) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Nodes)
}

// Tree renders the arena as nested comments in insertion order.
func (t *CommentThread) Tree() []Comment {
	if t == nil || len(t.Roots) == 0 {
		return nil
	}
	out := make([]Comment, 0, len(t.Roots))
	for _, id := range t.Roots {
		out = append(out, t.nest(id))
	}
	return out
}

func (t *CommentThread) nest(id string) Comment {
	n := t.Nodes[id]
	c := Comment{ID: n.ID, Text: n.Text, Author: n.Author, Timestamp: n.Timestamp}
	for _, child := range n.Children {
		c.Replies = append(c.Replies, t.nest(child))
	}
	return c
}

// ThreadFromTree flattens nested comments into an arena.
func ThreadFromTree(tree []Comment) *CommentThread {
	t := &CommentThread{Nodes: make(map[string]CommentNode)}
	for _, c := range tree {
		t.Roots = append(t.Roots, c.ID)
		t.flatten(c, "")
	}
	return t
}

func (t *CommentThread) flatten(c Comment, parent string) {
	n := CommentNode{ID: c.ID, Text: c.Text, Author: c.Author, Timestamp: c.Timestamp, Parent: parent}
	for _, r := range c.Replies {
		n.Children = append(n.Children, r.ID)
		t.flatten(r, c.ID)
	}
	t.Nodes[c.ID] = n
}

// Clone returns a deep copy.
func (t *CommentThread) Clone() *CommentThread {
	if t == nil {
		return nil
	}
	c := &CommentThread{
		Roots: append([]string(nil), t.Roots...),
		Nodes: make(map[string]CommentNode, len(t.Nodes)),
	}
	for id, n := range t.Nodes {
		n.Children = append([]string(nil), n.Children...)
		c.Nodes[id] = n
	}
	return c
}

// MarshalJSON encodes the thread as nested comments.
func (t CommentThread) MarshalJSON() ([]byte, error) {
	tree := t.Tree()
	if tree == nil {
		tree = []Comment{}
	}
	return json.Marshal(tree)
}

// UnmarshalJSON decodes nested comments into the arena.
func (t *CommentThread) UnmarshalJSON(b []byte) error {
	var tree []Comment
	if err := json.Unmarshal(b, &tree); err != nil {
		return err
	}
	*t = *ThreadFromTree(tree)
	return nil
}
