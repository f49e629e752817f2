// Package comments manages reply trees attached to votes and technologies.
// Threads are arenas of nodes keyed by id; lookups walk child-id lists.
package comments

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/techradar/internal/domain/model"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithIDGenerator overrides the comment id source.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine creates comments and replies. It holds no thread state and is
// safe for concurrent use; callers own the threads they pass in.
type Engine struct {
	newID func() string
	now   func() time.Time
}

// New creates an Engine with uuid ids and the wall clock.
func New(opts ...Option) *Engine {
	e := &Engine{
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewThread returns a thread holding a single root comment, as a vote carries.
func (e *Engine) NewThread(text, author string) *model.CommentThread {
	t := &model.CommentThread{Nodes: make(map[string]model.CommentNode)}
	id := e.newID()
	t.Roots = []string{id}
	t.Nodes[id] = e.node(id, "", text, author)
	return t
}

// AddComment appends a top-level comment to t and returns its id.
func (e *Engine) AddComment(t *model.CommentThread, text, author string) (string, error) {
	if t == nil {
		return "", model.NewKind("comments.add", model.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return "", model.WrapKind("comments.add", model.ErrInvalidInput, errEmptyText)
	}
	if t.Nodes == nil {
		t.Nodes = make(map[string]model.CommentNode)
	}
	id := e.newID()
	t.Nodes[id] = e.node(id, "", text, author)
	t.Roots = append(t.Roots, id)
	return id, nil
}

// AddReply appends a reply under targetID, wherever it sits in the tree.
// It fails with ErrCommentTargetNotFound when t is empty or the target is missing.
func (e *Engine) AddReply(t *model.CommentThread, targetID, text, author string) (string, error) {
	const op = "comments.reply"
	if strings.TrimSpace(text) == "" {
		return "", model.WrapKind(op, model.ErrInvalidInput, errEmptyText)
	}
	target, ok := Find(t, targetID)
	if !ok {
		return "", model.NewKind(op, model.ErrCommentTargetNotFound)
	}
	id := e.newID()
	t.Nodes[id] = e.node(id, target.ID, text, author)
	target.Children = append(target.Children, id)
	t.Nodes[target.ID] = target
	return id, nil
}

func (e *Engine) node(id, parent, text, author string) model.CommentNode {
	return model.CommentNode{
		ID:        id,
		Text:      text,
		Author:    strings.TrimSpace(author),
		Timestamp: e.now(),
		Parent:    parent,
	}
}

// Find runs a depth-first search from the roots over child-id lists.
func Find(t *model.CommentThread, id string) (model.CommentNode, bool) {
	if t == nil || len(t.Roots) == 0 || id == "" {
		return model.CommentNode{}, false
	}
	stack := make([]string, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, t.Roots[i])
	}
	visited := make(map[string]struct{}, len(t.Nodes))
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		n, ok := t.Nodes[cur]
		if !ok {
			continue
		}
		if cur == id {
			return n, true
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return model.CommentNode{}, false
}

// Depth returns how many ancestors id has; roots are at depth 0.
// It returns -1 when id is not reachable.
func Depth(t *model.CommentThread, id string) int {
	n, ok := Find(t, id)
	if !ok {
		return -1
	}
	d := 0
	for n.Parent != "" && d <= len(t.Nodes) {
		n = t.Nodes[n.Parent]
		d++
	}
	return d
}
