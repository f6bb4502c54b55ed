package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/effibem/bemviewer/utils"
)

// Material holds the two face colors of a surface: Exterior for faces
// wound counter-clockwise towards the viewer, Interior for the back side.
type Material struct {
	Exterior utils.ColorFloat
	Interior utils.ColorFloat
}

type Node struct {
	Name string

	// Transform is the local transform relative to Parent.
	Transform mgl32.Mat4
	world     mgl32.Mat4

	Mesh     *Mesh
	Edges    *Lines
	Material Material
	UserData map[string]interface{}

	Visible      bool
	EdgesVisible bool
	Selected     bool

	Parent *Node
	Childs []*Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:         name,
		Transform:    mgl32.Ident4(),
		world:        mgl32.Ident4(),
		Visible:      true,
		EdgesVisible: true,
	}
}

func (n *Node) Add(child *Node) {
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = n
	n.Childs = append(n.Childs, child)
}

func (n *Node) Remove(child *Node) {
	for i, c := range n.Childs {
		if c == child {
			n.Childs = append(n.Childs[:i], n.Childs[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// Traverse calls fn for n and every descendant, depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Childs {
		c.Traverse(fn)
	}
}

// TraverseVisible is Traverse that does not descend into hidden subtrees.
func (n *Node) TraverseVisible(fn func(*Node)) {
	if !n.Visible {
		return
	}
	fn(n)
	for _, c := range n.Childs {
		c.TraverseVisible(fn)
	}
}

// UpdateWorld recomputes cached world matrices of the subtree.
func (n *Node) UpdateWorld() {
	if n.Parent != nil {
		n.world = n.Parent.world.Mul4(n.Transform)
	} else {
		n.world = n.Transform
	}
	for _, c := range n.Childs {
		c.UpdateWorld()
	}
}

// World returns the world matrix computed by the last UpdateWorld.
func (n *Node) World() mgl32.Mat4 {
	return n.world
}

func (n *Node) StringData(key string) string {
	if n.UserData == nil {
		return ""
	}
	s, _ := n.UserData[key].(string)
	return s
}

// BoolData reports the value of a boolean user data field and whether it was present.
func (n *Node) BoolData(key string) (value bool, ok bool) {
	if n.UserData == nil {
		return false, false
	}
	value, ok = n.UserData[key].(bool)
	return
}
