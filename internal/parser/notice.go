package parser

import "fmt"

// Notice reports a value the normalizer could not interpret and replaced
// with its default
type Notice struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (n Notice) String() string {
	if n.Path == "" {
		return n.Message
	}
	return n.Path + ": " + n.Message
}

// Normalizer converts raw compose values into their canonical form.
// It never fails; every value it cannot interpret is recorded as a Notice.
// The zero value is ready to use. A Normalizer is not safe for concurrent use.
type Normalizer struct {
	path    string
	notices []Notice
}

// At sets the document path attached to subsequent notices
func (n *Normalizer) At(path string) *Normalizer {
	n.path = path
	return n
}

// Notices returns the notices collected so far
func (n *Normalizer) Notices() []Notice {
	return n.notices
}

func (n *Normalizer) notef(format string, args ...any) {
	n.notices = append(n.notices, Notice{Path: n.path, Message: fmt.Sprintf(format, args...)})
}

// within runs fn with the path temporarily extended by suffix
func (n *Normalizer) within(suffix string, fn func()) {
	saved := n.path
	if saved == "" {
		n.path = suffix
	} else if suffix != "" && suffix[0] == '[' {
		n.path = saved + suffix
	} else {
		n.path = saved + "." + suffix
	}
	fn()
	n.path = saved
}
