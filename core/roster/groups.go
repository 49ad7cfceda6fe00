package roster

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	separationPrefix = "SEP:"
	bindPrefix       = "BIND:"
)

// "<section>반-<name>" or "<section>-<name>": the group was formed in that current section.
var originTagRegex = regexp.MustCompile(`^(\d+)\s*(?:반)?\s*-\s*(.+)$`)

// GroupTag is a parsed separation or bind token.
// Two groups with the same name formed in different sections are different groups.
type GroupTag struct {
	Name   string
	Origin int // 0 when the tag carries no section
}

func (t GroupTag) String() string {
	if t.Origin == 0 {
		return t.Name
	}
	return strconv.Itoa(t.Origin) + "-" + t.Name
}

// ParseSeparationTags extracts the SEP: tags from a comma-separated group label.
// Tokens without a known prefix are display labels and are ignored.
func ParseSeparationTags(label string) []GroupTag {
	return parseGroupTags(label, separationPrefix)
}

// ParseBindTags extracts the BIND: tags from a comma-separated group label.
func ParseBindTags(label string) []GroupTag {
	return parseGroupTags(label, bindPrefix)
}

func parseGroupTags(label, prefix string) []GroupTag {
	var tags []GroupTag
	for _, tok := range strings.Split(label, ",") {
		tok = strings.TrimSpace(tok)
		if !strings.HasPrefix(strings.ToUpper(tok), prefix) {
			continue
		}
		body := strings.TrimSpace(tok[len(prefix):])
		if body == "" {
			continue
		}
		tag := GroupTag{Name: body}
		if m := originTagRegex.FindStringSubmatch(body); m != nil {
			if origin, err := strconv.Atoi(m[1]); err == nil && origin > 0 {
				tag = GroupTag{Name: strings.TrimSpace(m[2]), Origin: origin}
			}
		}
		tags = append(tags, tag)
	}
	return tags
}

// SeparationGroup is a set of students that must not share a section.
type SeparationGroup struct {
	Tag     GroupTag
	Members []int // student indexes, input order

	// sameName marks the implicit group of active students sharing a name.
	sameName bool
}

// BindGroup is a set of active students that must share a section.
type BindGroup struct {
	Tag     GroupTag
	Members []int
}

// conflicts holds the must-not-co-locate relation and the keep-together groups.
type conflicts struct {
	// groups lists SEP groups in declaration order (first appearance in the roster),
	// then the same-name groups.
	groups []SeparationGroup
	adj    map[int]map[int]struct{}

	binds []BindGroup
	bound map[int]bool
}

// buildConflicts derives the separation and bind groups from the students' group labels,
// and a separation group for every name shared by active students.
// Groups with fewer than 2 members are not constraints.
func buildConflicts(students []Student) *conflicts {
	c := &conflicts{
		adj:   make(map[int]map[int]struct{}),
		bound: make(map[int]bool),
	}

	for _, g := range collectGroups(students, ParseSeparationTags, false) {
		c.addSeparation(SeparationGroup{Tag: g.tag, Members: g.members})
	}

	byName := make(map[string]int)
	var names []SeparationGroup
	for i, s := range students {
		name := strings.TrimSpace(s.Name)
		if name == "" || !s.active() {
			continue
		}
		g, ok := byName[name]
		if !ok {
			g = len(names)
			byName[name] = g
			names = append(names, SeparationGroup{Tag: GroupTag{Name: name}, sameName: true})
		}
		names[g].Members = append(names[g].Members, i)
	}
	for _, g := range names {
		c.addSeparation(g)
	}

	for _, g := range collectGroups(students, ParseBindTags, true) {
		c.binds = append(c.binds, BindGroup{Tag: g.tag, Members: g.members})
		for _, m := range g.members {
			c.bound[m] = true
		}
	}
	return c
}

type taggedGroup struct {
	tag     GroupTag
	members []int
}

// collectGroups gathers the members of every tag parse finds, in order of first appearance.
func collectGroups(students []Student, parse func(string) []GroupTag, activeOnly bool) []taggedGroup {
	index := make(map[GroupTag]int)
	var all []taggedGroup
	for i, s := range students {
		if activeOnly && !s.active() {
			continue
		}
		for _, tag := range parse(s.GroupTag) {
			g, ok := index[tag]
			if !ok {
				g = len(all)
				index[tag] = g
				all = append(all, taggedGroup{tag: tag})
			}
			// a student repeating a tag is still one member
			if m := all[g].members; len(m) > 0 && m[len(m)-1] == i {
				continue
			}
			all[g].members = append(all[g].members, i)
		}
	}

	groups := all[:0]
	for _, g := range all {
		if len(g.members) >= 2 {
			groups = append(groups, g)
		}
	}
	return groups
}

func (c *conflicts) addSeparation(g SeparationGroup) {
	if len(g.Members) < 2 {
		return
	}
	c.groups = append(c.groups, g)
	for _, a := range g.Members {
		for _, b := range g.Members {
			if a != b {
				c.link(a, b)
			}
		}
	}
}

func (c *conflicts) link(a, b int) {
	peers, ok := c.adj[a]
	if !ok {
		peers = make(map[int]struct{})
		c.adj[a] = peers
	}
	peers[b] = struct{}{}
}

// conflict reports whether a and b must not share a section.
func (c *conflicts) conflict(a, b int) bool {
	_, ok := c.adj[a][b]
	return ok
}

// conflictsWithAny reports whether student conflicts with any of members, ignoring `except`.
func (c *conflicts) conflictsWithAny(student int, members []int, except int) bool {
	if len(c.adj[student]) == 0 {
		return false
	}
	for _, m := range members {
		if m != except && m != student && c.conflict(student, m) {
			return true
		}
	}
	return false
}
