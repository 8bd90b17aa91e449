// Package namespace composes hierarchical, collision-free keys for every
// coordination primitive. A Namespace reserves a sentinel root identifier
// so that a namespaced key can never be confused with a bare user key.
package namespace

import "strings"

// DefaultDelimiter is the default key-segment separator
const DefaultDelimiter = ":"

// DefaultRootIdentifier is the sentinel segment reserved by a Namespace to
// guarantee injectivity: a user key containing it is rejected outright
const DefaultRootIdentifier = "_rt"

// Key is a hierarchical key: a prefix chain plus a leaf segment, joined by a
// delimiter on String()
type Key struct {
	prefix    []string
	key       string
	delimiter string
}

// NewKey builds a raw Key with the given prefix chain, leaf, and delimiter
func NewKey(prefix []string, key, delimiter string) Key {
	return Key{prefix: append([]string(nil), prefix...), key: key, delimiter: delimiter}
}

// String joins prefix and key via the delimiter
func (k Key) String() string {
	if len(k.prefix) == 0 {
		return k.key
	}
	return strings.Join(append(append([]string(nil), k.prefix...), k.key), k.delimiter)
}

// Key returns the leaf segment
func (k Key) Key() string { return k.key }

// Prefix returns a copy of the prefix chain
func (k Key) Prefix() []string { return append([]string(nil), k.prefix...) }

// Namespace composes keys under a fixed root, rejecting any user key that
// contains the reserved root identifier
type Namespace struct {
	root           string
	delimiter      string
	rootIdentifier string
}

// Option configures a Namespace
type Option func(*Namespace)

// WithDelimiter overrides the default ":" delimiter
func WithDelimiter(d string) Option {
	return func(n *Namespace) { n.delimiter = d }
}

// WithRootIdentifier overrides the default "_rt" sentinel
func WithRootIdentifier(id string) Option {
	return func(n *Namespace) { n.rootIdentifier = id }
}

// New builds a Namespace rooted at root
func New(root string, opts ...Option) Namespace {
	n := Namespace{root: root, delimiter: DefaultDelimiter, rootIdentifier: DefaultRootIdentifier}
	for _, o := range opts {
		o(&n)
	}
	return n
}

// RootIdentifier returns the sentinel segment this namespace reserves
func (n Namespace) RootIdentifier() string { return n.rootIdentifier }

// Delimiter returns the configured segment delimiter
func (n Namespace) Delimiter() string { return n.delimiter }

// Root returns the configured root segment
func (n Namespace) Root() string { return n.root }

// Valid reports whether key is legal under this namespace: it must not
// contain the root identifier sentinel
func (n Namespace) Valid(key string) bool {
	return !strings.Contains(key, n.rootIdentifier)
}

// Create builds a Key of the form root:rootIdentifier[:group]:key. It panics
// if key contains the root identifier sentinel; callers that want an error
// instead check Valid first. The providers call Create directly, so a
// reserved key panics there too.
func (n Namespace) Create(key string, group ...string) Key {
	if !n.Valid(key) {
		panic("namespace: key contains reserved root identifier " + n.rootIdentifier)
	}
	prefix := []string{n.root, n.rootIdentifier}
	for _, g := range group {
		if g != "" {
			prefix = append(prefix, g)
		}
	}
	return NewKey(prefix, key, n.delimiter)
}

// KeyPrefixer is a narrower façade over a Namespace scoped to a single group
// chain, used by providers so call sites don't repeat the group argument
type KeyPrefixer struct {
	ns    Namespace
	group []string
}

// NewKeyPrefixer builds a KeyPrefixer over ns scoped to group (group may be
// empty for the root scope)
func NewKeyPrefixer(ns Namespace, group ...string) KeyPrefixer {
	return KeyPrefixer{ns: ns, group: append([]string(nil), group...)}
}

// WithGroup derives a child KeyPrefixer scoped to an additional sub-group
func (p KeyPrefixer) WithGroup(sub string) KeyPrefixer {
	return KeyPrefixer{ns: p.ns, group: append(append([]string(nil), p.group...), sub)}
}

// Group returns the dotted/joined group path this prefixer is scoped to
func (p KeyPrefixer) Group() string {
	return strings.Join(p.group, p.ns.delimiter)
}

// Create builds a namespaced Key for key under this prefixer's group chain
func (p KeyPrefixer) Create(key string) Key {
	return p.ns.Create(key, p.group...)
}

// Valid delegates to the underlying Namespace
func (p KeyPrefixer) Valid(key string) bool { return p.ns.Valid(key) }
