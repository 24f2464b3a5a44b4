package orderbook

type color uint8

const (
	red color = iota
	black
)

type node struct {
	key    int64
	level  *PriceLevel
	color  color
	left   *node
	right  *node
	parent *node
}

// levelTree is a red-black tree of price levels keyed by price. A
// descending tree treats the highest price as best (bids), an ascending
// one the lowest (asks).
type levelTree struct {
	root *node
	nil  *node // black sentinel
	size int
	desc bool

	clamps *uint64 // handed to every level the tree creates
}

func newLevelTree(desc bool, clamps *uint64) *levelTree {
	sentinel := &node{color: black}
	return &levelTree{root: sentinel, nil: sentinel, desc: desc, clamps: clamps}
}

func (t *levelTree) Len() int { return t.size }

func (t *levelTree) find(price int64) *PriceLevel {
	if n := t.search(price); n != t.nil {
		return n.level
	}
	return nil
}

// upsert returns the level at price, creating it when absent.
func (t *levelTree) upsert(price int64) *PriceLevel {
	parent := t.nil
	cur := t.root
	for cur != t.nil {
		parent = cur
		switch {
		case price < cur.key:
			cur = cur.left
		case price > cur.key:
			cur = cur.right
		default:
			return cur.level
		}
	}

	lvl := &PriceLevel{Price: price, clamps: t.clamps}
	z := &node{key: price, level: lvl, color: red, left: t.nil, right: t.nil, parent: parent}
	switch {
	case parent == t.nil:
		t.root = z
	case price < parent.key:
		parent.left = z
	default:
		parent.right = z
	}
	t.insertFixup(z)
	t.size++
	return lvl
}

func (t *levelTree) remove(price int64) bool {
	z := t.search(price)
	if z == t.nil {
		return false
	}
	t.deleteNode(z)
	t.size--
	return true
}

// best returns the level with the best price for this side, or nil.
func (t *levelTree) best() *PriceLevel {
	var n *node
	if t.desc {
		n = t.maxNode(t.root)
	} else {
		n = t.minNode(t.root)
	}
	if n == t.nil {
		return nil
	}
	return n.level
}

// walk visits levels best price first until fn returns false.
func (t *levelTree) walk(fn func(*PriceLevel) bool) {
	if t.desc {
		for n := t.maxNode(t.root); n != t.nil; n = t.prev(n) {
			if !fn(n.level) {
				return
			}
		}
		return
	}
	for n := t.minNode(t.root); n != t.nil; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

func (t *levelTree) search(price int64) *node {
	n := t.root
	for n != t.nil && n.key != price {
		if price < n.key {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

func (t *levelTree) minNode(n *node) *node {
	if n == t.nil {
		return n
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *levelTree) maxNode(n *node) *node {
	if n == t.nil {
		return n
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *levelTree) next(n *node) *node {
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n, p = p, p.parent
	}
	return p
}

func (t *levelTree) prev(n *node) *node {
	if n.left != t.nil {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n, p = p, p.parent
	}
	return p
}

func (t *levelTree) rotateLeft(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	t.replaceChild(x, y)
	y.left = x
	x.parent = y
}

func (t *levelTree) rotateRight(x *node) {
	y := x.left
	x.left = y.right
	if y.right != t.nil {
		y.right.parent = x
	}
	t.replaceChild(x, y)
	y.right = x
	x.parent = y
}

// replaceChild hangs v where u used to be under u's parent.
func (t *levelTree) replaceChild(u, v *node) {
	switch {
	case u.parent == t.nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *levelTree) insertFixup(z *node) {
	for z.parent.color == red {
		gp := z.parent.parent
		if z.parent == gp.left {
			uncle := gp.right
			if uncle.color == red {
				z.parent.color, uncle.color, gp.color = black, black, red
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.rotateLeft(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rotateRight(z.parent.parent)
		} else {
			uncle := gp.left
			if uncle.color == red {
				z.parent.color, uncle.color, gp.color = black, black, red
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rotateRight(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rotateLeft(z.parent.parent)
		}
	}
	t.root.color = black
}

func (t *levelTree) deleteNode(z *node) {
	y := z
	removed := y.color
	var x *node

	switch {
	case z.left == t.nil:
		x = z.right
		t.replaceChild(z, z.right)
	case z.right == t.nil:
		x = z.left
		t.replaceChild(z, z.left)
	default:
		y = t.minNode(z.right)
		removed = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.replaceChild(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.replaceChild(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if removed == black {
		t.deleteFixup(x)
	}
}

func (t *levelTree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
				continue
			}
			if w.right.color == black {
				w.left.color = black
				w.color = red
				t.rotateRight(w)
				w = x.parent.right
			}
			w.color = x.parent.color
			x.parent.color = black
			w.right.color = black
			t.rotateLeft(x.parent)
			x = t.root
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
				continue
			}
			if w.left.color == black {
				w.right.color = black
				w.color = red
				t.rotateLeft(w)
				w = x.parent.left
			}
			w.color = x.parent.color
			x.parent.color = black
			w.left.color = black
			t.rotateRight(x.parent)
			x = t.root
		}
	}
	x.color = black
}
