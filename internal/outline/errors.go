package outline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyOutline is returned when there is no heading to root a tree at.
var ErrEmptyOutline = errors.New("outline has no headings")

// FirstPageError means the first heading does not start on page 1.
type FirstPageError struct {
	Page int
}

func (e *FirstPageError) Error() string {
	return fmt.Sprintf("first heading must be on page 1, got page %d", e.Page)
}

// HierarchyError means a heading has no shallower ancestor on the stack,
// i.e. it is as shallow as (or shallower than) the root heading.
type HierarchyError struct {
	Heading Heading
	Index   int
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("malformed hierarchy: heading %d %s has no enclosing heading", e.Index, e.Heading)
}

// UnknownTypeError means a heading's type is not in the type list.
type UnknownTypeError struct {
	Type  string
	Index int
	Known TypeList
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("heading %d: unknown type %q (known: %s)", e.Index, e.Type, strings.Join(e.Known, ", "))
}

// PageOrderError means headings are not in page order or point past the
// end of the document.
type PageOrderError struct {
	Heading Heading
	Index   int
	Prev    int
	Total   int
}

func (e *PageOrderError) Error() string {
	if e.Heading.Page > e.Total {
		return fmt.Sprintf("heading %d %s is past the last page %d", e.Index, e.Heading, e.Total)
	}
	return fmt.Sprintf("heading %d %s comes after a heading on page %d", e.Index, e.Heading, e.Prev)
}
