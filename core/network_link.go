package core

import "fmt"

// Link is an undirected adjacency between two live routers. A is always the
// smaller id so that equal links compare equal.
type Link struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewLink normalizes endpoint order.
func NewLink(a, b int) Link {
	if b < a {
		a, b = b, a
	}
	return Link{A: a, B: b}
}

// Other returns the opposite endpoint, or false if id is not on the link.
func (l Link) Other(id int) (int, bool) {
	switch id {
	case l.A:
		return l.B, true
	case l.B:
		return l.A, true
	}
	return 0, false
}

func (l Link) String() string {
	return fmt.Sprintf("%d-%d", l.A, l.B)
}
