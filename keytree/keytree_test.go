package keytree

import (
	"errors"
	"reflect"
	"testing"
)

type person struct {
	Name string
	Age  int
}

func (p person) Clone() person { return p }

func (p person) Assign(partial person) person {
	if partial.Name != "" {
		p.Name = partial.Name
	}
	if partial.Age != 0 {
		p.Age = partial.Age
	}
	return p
}

func mustAdd[T Record[T]](t *testing.T, tree *Tree[T], path string, typ NodeType) *Node[T] {
	t.Helper()
	n, err := tree.Add(path, typ, true)
	if err != nil {
		t.Fatalf("Add(%q): %v", path, err)
	}
	return n
}

func TestAdd_StructuralErrors(t *testing.T) {
	tree := New[person]()
	mustAdd(t, tree, "T.TT.TTT.TTTT", TypeNode)

	if _, err := tree.Add("T", TypeNode, true); !errors.Is(err, ErrExistedKey) {
		t.Fatalf("re-adding T: err = %v, want ErrExistedKey", err)
	}

	mustAdd(t, tree, "S", TypeLeaf)
	if _, err := tree.Add("S.S1", TypeNode, true); !errors.Is(err, ErrIllegalAddChild) {
		t.Fatalf("adding under leaf: err = %v, want ErrIllegalAddChild", err)
	}

	if _, err := tree.Add("P.P1.P2", TypeLeaf, false); !errors.Is(err, ErrMissingParent) {
		t.Fatalf("non-recursive add: err = %v, want ErrMissingParent", err)
	}
	if tree.Has("P") {
		t.Fatal("failed non-recursive add must not create intermediates")
	}

	var terr *Error
	_, err := tree.Add("T", TypeLeaf, true)
	if !errors.As(err, &terr) || terr.Key != "T" {
		t.Fatalf("errors.As: got %#v", err)
	}
}

func TestParsePath_RejectsMalformed(t *testing.T) {
	for _, path := range []string{"", "   ", ".a", "a.", "a..b", "XXX.   ", "a.b c"} {
		if _, err := ParsePath(path); !errors.Is(err, ErrPathFormat) {
			t.Errorf("ParsePath(%q) err = %v, want ErrPathFormat", path, err)
		}
	}

	segs, err := ParsePath("  a.b.c@remove@ ")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	if want := []string{"a", "b", "c@remove@"}; !reflect.DeepEqual(segs, want) {
		t.Fatalf("segments = %v, want %v", segs, want)
	}
}

func TestGet_MissingSegment(t *testing.T) {
	tree := New[person]()
	mustAdd(t, tree, "XXX.YYY", TypeLeaf)

	if tree.Has("XXX.   ") {
		t.Fatal("Has(\"XXX.   \") = true, want false")
	}
	if tree.Get("XXX.ZZZ.QQQ") != nil {
		t.Fatal("Get on missing path should be nil")
	}
	if tree.Get("") != nil {
		t.Fatal("Get(\"\") should be nil")
	}
	if n := tree.Get("XXX.YYY"); n == nil || n.FullKey() != "XXX.YYY" {
		t.Fatalf("Get(XXX.YYY) = %v", n)
	}
}

func TestGet_TrimsLikeAdd(t *testing.T) {
	tree := New[person]()
	mustAdd(t, tree, " a.b ", TypeLeaf)

	for _, path := range []string{"a.b", " a.b ", "\ta.b\n"} {
		if !tree.Has(path) {
			t.Errorf("Has(%q) = false, want true", path)
		}
	}
	if tree.Has("a .b") {
		t.Error("whitespace inside a segment should not resolve")
	}
	tree.Delete(" a.b ")
	if tree.Has("a.b") {
		t.Fatal("Delete with surrounding whitespace should remove the node")
	}
}

func TestSetValue_OnlyOnLeaves(t *testing.T) {
	tree := New[person]()
	leaf := mustAdd(t, tree, "a.b", TypeLeaf)
	if err := leaf.SetValue(person{Name: "ann", Age: 3}); err != nil {
		t.Fatalf("SetValue on leaf: %v", err)
	}

	container := tree.Get("a")
	if err := container.SetValue(person{Name: "x"}); !errors.Is(err, ErrIllegalValue) {
		t.Fatalf("SetValue on container: err = %v, want ErrIllegalValue", err)
	}

	container.Mutate(func(p person) person { p.Age = 99; return p })
	container.Assign(person{Name: "ignored"})
	if container.Value() != (person{}) {
		t.Fatalf("container value changed: %+v", container.Value())
	}

	leaf.Assign(person{Age: 4})
	if got := leaf.Value(); got != (person{Name: "ann", Age: 4}) {
		t.Fatalf("Assign: got %+v", got)
	}
}

func TestSetChild_RequiresExistingKey(t *testing.T) {
	tree := New[person]()
	parent := mustAdd(t, tree, "p", TypeNode)

	replacement := New[person]().Root()
	if err := parent.SetChild("missing", replacement); !errors.Is(err, ErrNullKey) {
		t.Fatalf("SetChild on missing key: err = %v, want ErrNullKey", err)
	}

	leaf := mustAdd(t, tree, "p.q", TypeLeaf)
	if err := leaf.SetChild("x", replacement); !errors.Is(err, ErrIllegalAddChild) {
		t.Fatalf("SetChild on leaf: err = %v, want ErrIllegalAddChild", err)
	}
}

func TestSetType_ResetsState(t *testing.T) {
	tree := New[person]()
	mustAdd(t, tree, "a.b.c", TypeLeaf)
	a := tree.Get("a")

	a.SetType(TypeLeaf)
	if a.Len() != 0 || tree.Has("a.b") {
		t.Fatal("retyping to leaf must drop children")
	}
	if err := a.SetValue(person{Name: "n"}); err != nil {
		t.Fatalf("SetValue after retype: %v", err)
	}
	a.SetType(TypeNode)
	if a.Value() != (person{}) {
		t.Fatalf("retyping to node must reset value, got %+v", a.Value())
	}
}

func TestClone_IsIndependent(t *testing.T) {
	tree := NewValueTree()
	leaf := mustAdd(t, tree, "page.title", TypeLeaf)
	if err := leaf.SetValue(Value{Key: "page.title", Texts: map[string]Text{
		"zh": StringText("标题"),
		"en": ListText("a", "b"),
	}}); err != nil {
		t.Fatal(err)
	}

	clone := tree.Clone()
	cl := clone.Get("page.title")
	cl.Mutate(func(v Value) Value {
		v.Texts["zh"] = StringText("changed")
		v.Texts["en"].List[0] = "z"
		return v
	})
	mustAdd(t, clone, "page.extra", TypeLeaf)

	if got := tree.Get("page.title").Value().Text("zh").Str; got != "标题" {
		t.Fatalf("original zh = %q after mutating clone", got)
	}
	if got := tree.Get("page.title").Value().Text("en").List[0]; got != "a" {
		t.Fatalf("original en[0] = %q after mutating clone", got)
	}
	if tree.Has("page.extra") {
		t.Fatal("adding to clone leaked into original")
	}
	if cl.Parent() != clone.Get("page") {
		t.Fatal("cloned child must point at cloned parent")
	}
}

func TestFullKey_FollowsPosition(t *testing.T) {
	tree := New[person]()
	mustAdd(t, tree, "a.b.c", TypeLeaf)
	mustAdd(t, tree, "x", TypeNode)

	moved := tree.Get("a.b").Clone()
	if err := tree.Get("x").AttachChild("y", moved); err != nil {
		t.Fatal(err)
	}
	if got := tree.Get("x.y.c").FullKey(); got != "x.y.c" {
		t.Fatalf("FullKey = %q, want x.y.c", got)
	}
	if got := tree.Root().FullKey(); got != "" {
		t.Fatalf("root FullKey = %q, want empty", got)
	}
}

func TestVisit_Order(t *testing.T) {
	tree := New[person]()
	for _, p := range []string{"b.y", "a", "b.x"} {
		mustAdd(t, tree, p, TypeLeaf)
	}

	var insertion []string
	tree.Visit(func(n *Node[person]) bool {
		insertion = append(insertion, n.FullKey())
		return true
	})
	if want := []string{"b", "b.y", "b.x", "a"}; !reflect.DeepEqual(insertion, want) {
		t.Fatalf("Visit order = %v, want %v", insertion, want)
	}

	var sorted []string
	for _, n := range tree.Leaves() {
		sorted = append(sorted, n.FullKey())
	}
	if want := []string{"a", "b.x", "b.y"}; !reflect.DeepEqual(sorted, want) {
		t.Fatalf("Leaves = %v, want %v", sorted, want)
	}
}

func TestDelete(t *testing.T) {
	tree := New[person]()
	mustAdd(t, tree, "a.b", TypeLeaf)
	mustAdd(t, tree, "a.c", TypeLeaf)

	tree.Delete("a.b")
	tree.Delete("nope.nope")
	if tree.Has("a.b") || !tree.Has("a.c") {
		t.Fatal("Delete removed the wrong node")
	}
	if got := tree.Get("a").Len(); got != 1 {
		t.Fatalf("children after delete = %d, want 1", got)
	}
}

func TestParseText(t *testing.T) {
	if got := ParseText(`["a", "b"]`); !got.Equal(ListText("a", "b")) {
		t.Fatalf("ParseText list = %#v", got)
	}
	if got := ParseText(`[not json]`); got.IsList() || got.Str != "[not json]" {
		t.Fatalf("ParseText invalid = %#v", got)
	}
	if got := ParseText("[]"); got.IsList() {
		t.Fatal("empty brackets should stay a string")
	}
	if got := ListText("x", "\"y\"").String(); got != `["x","\"y\""]` {
		t.Fatalf("String = %s", got)
	}
}
