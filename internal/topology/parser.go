// Package topology reconstructs the mesh routing tree from the border
// router's textual status dump and computes per-device hop counts.
package topology

import (
	"errors"
	"net"
	"regexp"
	"strings"
)

// ErrNoTopology reports that the status output contained no tree nodes.
// Callers treat this as "topology unavailable", not as a fatal condition.
var ErrNoTopology = errors.New("no topology nodes found in status output")

// Edge is one parent→child link in the routing tree.
type Edge struct {
	Parent string
	Child  string
}

// Topology is the parsed status dump: prologue metadata plus the tree.
type Topology struct {
	Root  string
	Edges []Edge
	Meta  map[string]string
}

var metaRe = regexp.MustCompile(`^(\S[^:]*):\s*(.*)$`)

// connectorChars are the glyphs the status dump uses to draw tree nesting.
const connectorChars = " |`-+"

// Parse splits the status dump into a metadata prologue and the indented
// routing tree, and converts the tree into an ordered edge list.
//
// Nesting depth is the literal length of a line's leading connector run. A
// stack of (depth, address) pairs resolves each node's parent: entries at a
// depth at or beyond the current line's are popped, the remaining top is the
// parent, and the node is pushed. The first node seen is the root. Lines with
// no recognizable address are skipped.
func Parse(output string) (*Topology, error) {
	topo := &Topology{Meta: make(map[string]string)}

	type frame struct {
		depth int
		addr  string
	}
	var stack []frame

	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		addr, depth, ok := nodeLine(line)
		if !ok {
			// Before the first node everything is prologue; afterwards an
			// unrecognizable line is just decoration.
			if topo.Root == "" {
				if m := metaRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
					topo.Meta[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
				}
			}
			continue
		}

		if topo.Root == "" {
			topo.Root = addr
		}

		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			topo.Edges = append(topo.Edges, Edge{Parent: stack[len(stack)-1].addr, Child: addr})
		}
		stack = append(stack, frame{depth: depth, addr: addr})
	}

	if topo.Root == "" {
		return nil, ErrNoTopology
	}
	return topo, nil
}

// nodeLine extracts the node address and nesting depth from a tree line.
// The depth is the raw character count of the connector/indentation prefix,
// not a fixed-width level number; the dump's connector widths vary.
func nodeLine(line string) (addr string, depth int, ok bool) {
	stripped := strings.TrimLeft(line, connectorChars)
	depth = len(line) - len(stripped)

	fields := strings.Fields(stripped)
	if len(fields) == 0 {
		return "", 0, false
	}
	token := strings.Trim(fields[0], ",;")
	if net.ParseIP(token) == nil {
		return "", 0, false
	}
	return token, depth, true
}
