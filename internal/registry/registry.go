// registry.go — Object registry (spec §4.2, component C2).
//
// Registry must be driven exclusively from the UI thread (spec §4.2: "the
// registry must be operated only on the UI thread"); it performs no locking
// of its own; the caller (internal/probe, wired through internal/uithread)
// is responsible for that affinity. It implements framework.LifetimeListener
// so it can be installed directly via internal/hookshim.
package registry

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ssss2art/qtmcp/internal/logging"
	"github.com/ssss2art/qtmcp/internal/types"
)

type node struct {
	obj      types.TrackedObject
	children []types.ObjectID // live children, in sibling order
}

// Registry is the live set of tracked objects and the hierarchical-ID
// derivation over it.
type Registry struct {
	nodes map[types.ObjectID]*node
	roots []types.ObjectID // top-level objects, in first-seen order
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{nodes: make(map[types.ObjectID]*node)}
}

// Register tracks a newly constructed object (spec §4.2 "register(obj)").
func (r *Registry) Register(obj types.TrackedObject) {
	if _, exists := r.nodes[obj.ID]; exists {
		logging.L().Warn("registry: duplicate construction event", logging.ObjectID(uint64(obj.ID)))
		return
	}
	r.nodes[obj.ID] = &node{obj: obj}
	if obj.HasParent {
		if parent, ok := r.nodes[obj.ParentID]; ok {
			parent.children = append(parent.children, obj.ID)
		} else {
			// Parent not tracked (e.g. pre-existing object the shim never
			// snapshotted): treat as a root rather than drop the object.
			r.roots = append(r.roots, obj.ID)
		}
	} else {
		r.roots = append(r.roots, obj.ID)
	}
}

// OnConstructed implements framework.LifetimeListener.
func (r *Registry) OnConstructed(obj types.TrackedObject) { r.Register(obj) }

// OnDestroyed implements framework.LifetimeListener.
func (r *Registry) OnDestroyed(id types.ObjectID) { r.Unregister(id) }

// Unregister retires an object that the Host has reported destroyed. Per the
// invariant in spec §3, no tracked object is accessed after this fires.
func (r *Registry) Unregister(id types.ObjectID) {
	n, ok := r.nodes[id]
	if !ok {
		return
	}
	delete(r.nodes, id)
	if n.obj.HasParent {
		if parent, ok := r.nodes[n.obj.ParentID]; ok {
			parent.children = removeID(parent.children, id)
		}
	} else {
		r.roots = removeID(r.roots, id)
	}
}

func removeID(list []types.ObjectID, id types.ObjectID) []types.ObjectID {
	for i, c := range list {
		if c == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// ObjectOf resolves a hierarchical ID to a tracked object, or false if the
// path does not currently resolve (spec §4.2 "objectOf... on an unknown ID
// returns null without error").
func (r *Registry) ObjectOf(id string) (types.TrackedObject, bool) {
	segments := strings.Split(strings.Trim(id, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return types.TrackedObject{}, false
	}

	var candidates []types.ObjectID
	for _, root := range r.roots {
		candidates = append(candidates, root)
	}

	var current types.ObjectID
	var found bool
	children := candidates
	for i, seg := range segments {
		found = false
		for _, childID := range children {
			n, ok := r.nodes[childID]
			if !ok {
				continue
			}
			if r.segmentFor(childID) == seg {
				current = childID
				found = true
				children = n.children
				break
			}
		}
		if !found {
			return types.TrackedObject{}, false
		}
		if i == len(segments)-1 {
			break
		}
	}
	if !found {
		return types.TrackedObject{}, false
	}
	return r.nodes[current].obj, true
}

// IDOf derives the hierarchical ID of a tracked object (spec §4.2 algorithm).
// Returns "" if the object is not (or no longer) tracked.
func (r *Registry) IDOf(id types.ObjectID) string {
	if _, ok := r.nodes[id]; !ok {
		return ""
	}

	var chain []types.ObjectID
	for cur := id; ; {
		chain = append(chain, cur)
		curNode := r.nodes[cur]
		if !curNode.obj.HasParent {
			break
		}
		if _, ok := r.nodes[curNode.obj.ParentID]; !ok {
			break
		}
		cur = curNode.obj.ParentID
	}
	// chain is currently obj->...->root; reverse to root->...->obj.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	segments := make([]string, 0, len(chain))
	for _, oid := range chain {
		segments = append(segments, r.segmentFor(oid))
	}
	return strings.Join(segments, "/")
}

// segmentFor computes one path segment (Class, Class#name, or Class[k]) for
// an object, disambiguating against its current siblings.
func (r *Registry) segmentFor(id types.ObjectID) string {
	n := r.nodes[id]
	siblings := r.roots
	if n.obj.HasParent {
		if parent, ok := r.nodes[n.obj.ParentID]; ok {
			siblings = parent.children
		}
	}

	sameClass := make([]types.ObjectID, 0, len(siblings))
	for _, sid := range siblings {
		if sn, ok := r.nodes[sid]; ok && sn.obj.ClassName == n.obj.ClassName {
			sameClass = append(sameClass, sid)
		}
	}

	if n.obj.UserName != "" {
		matchingName := 0
		for _, sid := range sameClass {
			if r.nodes[sid].obj.UserName == n.obj.UserName {
				matchingName++
			}
		}
		if matchingName == 1 {
			return fmt.Sprintf("%s#%s", n.obj.ClassName, n.obj.UserName)
		}
	} else if len(sameClass) == 1 {
		return n.obj.ClassName
	}

	index := 0
	for _, sid := range sameClass {
		if sid == id {
			break
		}
		index++
	}
	return fmt.Sprintf("%s[%d]", n.obj.ClassName, index)
}

// TreeNode is one entry in a snapshotTree result.
type TreeNode struct {
	ID       string     `json:"id"`
	Class    string     `json:"class"`
	Name     string     `json:"name,omitempty"`
	IsWidget bool       `json:"isWidget"`
	Children []TreeNode `json:"children,omitempty"`
}

// SnapshotTree walks from rootID (or every declared root if rootID is
// empty) down to maxDepth levels. depth=0 returns just the root node with no
// Children key (spec §8 boundary behaviour); maxDepth<0 means unlimited.
func (r *Registry) SnapshotTree(rootID string, maxDepth int) ([]TreeNode, error) {
	if rootID == "" {
		out := make([]TreeNode, 0, len(r.roots))
		for _, rid := range r.roots {
			out = append(out, r.buildTree(rid, maxDepth))
		}
		return out, nil
	}
	obj, ok := r.ObjectOf(rootID)
	if !ok {
		return nil, errors.Newf("registry: unknown id %q", rootID)
	}
	return []TreeNode{r.buildTree(obj.ID, maxDepth)}, nil
}

func (r *Registry) buildTree(id types.ObjectID, depthRemaining int) TreeNode {
	n := r.nodes[id]
	tn := TreeNode{
		ID:       r.IDOf(id),
		Class:    n.obj.ClassName,
		Name:     n.obj.UserName,
		IsWidget: n.obj.IsWidget,
	}
	if depthRemaining == 0 {
		return tn
	}
	next := depthRemaining - 1
	if len(n.children) > 0 {
		tn.Children = make([]TreeNode, 0, len(n.children))
		for _, cid := range n.children {
			tn.Children = append(tn.Children, r.buildTree(cid, next))
		}
	}
	return tn
}

// FindByClass returns every tracked object whose class name matches.
func (r *Registry) FindByClass(name string) []types.TrackedObject {
	var out []types.TrackedObject
	for _, n := range r.nodes {
		if n.obj.ClassName == name {
			out = append(out, n.obj)
		}
	}
	return out
}

// FindByName returns every tracked object whose user ("objectName") matches.
func (r *Registry) FindByName(userName string) []types.TrackedObject {
	var out []types.TrackedObject
	for _, n := range r.nodes {
		if n.obj.UserName == userName {
			out = append(out, n.obj)
		}
	}
	return out
}

// Exists reports whether id is still tracked, used by callers that must
// reject operations on an already-destroyed object (spec §3 invariant).
func (r *Registry) Exists(id types.ObjectID) bool {
	_, ok := r.nodes[id]
	return ok
}
