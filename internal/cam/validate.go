package cam

import (
	"fmt"
	"path"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Rule string

const (
	RuleDuplicateIdentifier     Rule = "duplicate-identifier"
	RuleUnresolvedIdentifierRef Rule = "unresolved-identifierref"
	RuleUnresolvedDependency    Rule = "unresolved-dependency"
	RuleMissingFile             Rule = "missing-file"
	RuleInvalidDefault          Rule = "invalid-default-organization"
	RuleUnreferencedFile        Rule = "unreferenced-file"
	RuleDependencyCycle         Rule = "dependency-cycle"
	RuleParseWarning            Rule = "parse-warning"
)

// Issue is one finding attached to a node of the manifest.
type Issue struct {
	Path       string   `json:"path"`
	Identifier string   `json:"identifier,omitempty"`
	Rule       Rule     `json:"rule"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
}

// Report is the result of validating a whole manifest. The tree itself is
// left untouched; per-node validity is read back by path.
type Report struct {
	issues []Issue
	byPath map[string][]int
	nodes  []string
}

func newReport() *Report { return &Report{byPath: map[string][]int{}} }

func (r *Report) add(n Node, rule Rule, sev Severity, format string, args ...any) {
	r.issues = append(r.issues, Issue{
		Path:       n.Path(),
		Identifier: n.Identifier(),
		Rule:       rule,
		Severity:   sev,
		Message:    fmt.Sprintf(format, args...),
	})
	r.byPath[n.Path()] = append(r.byPath[n.Path()], len(r.issues)-1)
}

// Issues returns every finding in document order.
func (r *Report) Issues() []Issue { return r.issues }

// Nodes lists the paths of all visited nodes in document order.
func (r *Report) Nodes() []string { return r.nodes }

// For returns the findings attached to the node at path.
func (r *Report) For(path string) []Issue {
	idx := r.byPath[path]
	out := make([]Issue, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.issues[i])
	}
	return out
}

// Valid reports whether no error-level finding exists anywhere.
func (r *Report) Valid() bool { return r.Errors() == 0 }

func (r *Report) Errors() int { return r.count(SeverityError) }

func (r *Report) Warnings() int { return r.count(SeverityWarning) }

func (r *Report) count(sev Severity) int {
	n := 0
	for _, is := range r.issues {
		if is.Severity == sev {
			n++
		}
	}
	return n
}

// NodeValid reports whether the node at path carries no error-level finding.
func (r *Report) NodeValid(path string) bool {
	for _, i := range r.byPath[path] {
		if r.issues[i].Severity == SeverityError {
			return false
		}
	}
	return true
}

// IdentifierValid reports whether the node's identifier is unique in the
// document.
func (r *Report) IdentifierValid(path string) bool {
	for _, i := range r.byPath[path] {
		if r.issues[i].Rule == RuleDuplicateIdentifier {
			return false
		}
	}
	return true
}

// Validate checks the whole document m belongs to. Every node is visited,
// local failures never stop the walk. files is the set of names shipped in
// the package; a nil set skips the file existence and unreferenced file
// checks.
func Validate(m *Manifest, files FileSet) *Report {
	root := m.Root()
	rep := newReport()

	var all []Node
	Walk(root, func(n Node) { all = append(all, n) })

	ids := map[string]int{}
	resourceIDs := map[string]bool{}
	itemTargets := map[string]bool{}
	for _, n := range all {
		if id := n.Identifier(); id != "" {
			ids[id]++
		}
		switch v := n.(type) {
		case *Resource:
			if v.ID != "" {
				resourceIDs[v.ID] = true
				itemTargets[v.ID] = true
			}
		case *Manifest:
			if v.ID != "" {
				itemTargets[v.ID] = true
			}
		}
	}

	var remaining FileSet
	if files != nil {
		remaining = files.Clone()
	}
	checkFile := func(n Node, name, what string) {
		if files == nil {
			return
		}
		if name == "" || !files.Has(name) {
			rep.add(n, RuleMissingFile, SeverityError, "%s %q not found in package", what, name)
			return
		}
		remaining.Remove(name)
	}

	for _, n := range all {
		rep.nodes = append(rep.nodes, n.Path())
		for _, w := range n.Warnings() {
			rep.add(n, RuleParseWarning, SeverityWarning, "%s", w)
		}
		if id := n.Identifier(); id != "" && ids[id] > 1 {
			rep.add(n, RuleDuplicateIdentifier, SeverityError, "identifier %q is used by %d elements", id, ids[id])
		}
		switch v := n.(type) {
		case *Organizations:
			if v.Default != "" && v.ByID(v.Default) == nil {
				rep.add(n, RuleInvalidDefault, SeverityError, "default organization %q is not one of the organizations", v.Default)
			}
		case *Item:
			if v.IdentifierRef != "" && !itemTargets[v.IdentifierRef] {
				rep.add(n, RuleUnresolvedIdentifierRef, SeverityError, "identifierref %q does not name a resource", v.IdentifierRef)
			}
		case *Dependency:
			if !resourceIDs[v.IdentifierRef] {
				rep.add(n, RuleUnresolvedDependency, SeverityError, "dependency %q does not name a resource", v.IdentifierRef)
			}
		case *Resource:
			if v.Href != "" && files != nil && !files.Has(v.FullHref()) {
				rep.add(n, RuleMissingFile, SeverityError, "href %q not found in package", v.FullHref())
			}
		case *File:
			checkFile(n, v.FullHref(), "file")
		case *Metadata:
			if v.Location != "" {
				checkFile(n, v.LocationHref(), "metadata location")
			}
		}
	}

	reportCycles(root, rep)

	if files != nil {
		var leftovers []string
		for _, name := range remaining.Sorted() {
			if isControlFile(name) {
				continue
			}
			leftovers = append(leftovers, name)
		}
		if len(leftovers) > 0 {
			var target Node = root
			if root.Resources != nil {
				target = root.Resources
			}
			rep.add(target, RuleUnreferencedFile, SeverityError, "%d package file(s) not referenced by any file element: %s",
				len(leftovers), strings.Join(leftovers, ", "))
		}
	}
	return rep
}

// isControlFile reports package-root files that belong to the package
// itself rather than to a resource: the manifest and its schema files.
func isControlFile(name string) bool {
	if name == ManifestName {
		return true
	}
	if strings.Contains(name, "/") {
		return false
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".xsd", ".dtd":
		return true
	}
	return false
}

// reportCycles flags every dependency cycle once, on the resource that
// closes it.
func reportCycles(root *Manifest, rep *Report) {
	const (
		white = iota
		grey
		black
	)
	color := map[*Resource]int{}
	var stack []*Resource
	var visit func(r *Resource)
	visit = func(r *Resource) {
		color[r] = grey
		stack = append(stack, r)
		for _, d := range r.Dependencies {
			dep := root.ResourceByID(d.IdentifierRef)
			if dep == nil {
				continue
			}
			switch color[dep] {
			case white:
				visit(dep)
			case grey:
				var chain []string
				for i := len(stack) - 1; i >= 0; i-- {
					chain = append([]string{stack[i].ID}, chain...)
					if stack[i] == dep {
						break
					}
				}
				chain = append(chain, dep.ID)
				rep.add(r, RuleDependencyCycle, SeverityWarning, "dependency cycle %s", strings.Join(chain, " -> "))
			}
		}
		stack = stack[:len(stack)-1]
		color[r] = black
	}
	Walk(root, func(n Node) {
		if r, ok := n.(*Resource); ok && color[r] == white {
			visit(r)
		}
	})
}
