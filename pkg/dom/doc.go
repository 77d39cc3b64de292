// Package dom implements the in-memory document the hooks run against.
//
// A Document wraps a tree of golang.org/x/net/html nodes. The tree itself is
// the authoritative state: element order, attributes, classes and inline
// styles all live on the html.Node, so rendering a document back to HTML
// shows exactly what a browser would show. Runtime state that has no
// attribute form (the live value of a control, selection ranges, scroll
// offsets, listeners) is kept on the Element handle, of which there is
// exactly one per node.
//
// Selectors are compiled with github.com/andybalholm/cascadia, so anything
// a hook would pass to querySelector works here too.
//
// Geometry is approximated by a stacking layout: block elements are laid out
// top to bottom inside their parent. Tests pin exact boxes with SetRect.
package dom
