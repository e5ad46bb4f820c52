package cycler

import "fmt"

// NodeSpec binds a Node to the paths it declares as inputs (Reads) and
// outputs (Writes), the bookkeeping BuildPlan needs to order nodes so
// that every declared input is produced before it is consumed.
type NodeSpec struct {
	Name   string
	Node   Node
	Reads  []string
	Writes []string
}

// Plan is a cycler's ordered node list: every tick runs the setup nodes
// first, in the order given, then the cycle nodes in the order BuildPlan
// computed.
type Plan struct {
	Setup []NodeSpec
	Cycle []NodeSpec
}

// BuildPlan topologically sorts cycle nodes by their declared Reads/Writes
// dependencies, so a node that reads a path always runs after the node
// that writes it. Setup nodes are returned unordered relative to each
// other (their writes are assumed to have no interdependency); callers
// that need a specific setup order should list them pre-ordered.
func BuildPlan(setup, cycle []NodeSpec) (*Plan, error) {
	ordered, err := topoSort(cycle)
	if err != nil {
		return nil, err
	}
	return &Plan{Setup: setup, Cycle: ordered}, nil
}

func topoSort(specs []NodeSpec) ([]NodeSpec, error) {
	producer := map[string]string{} // path -> node name that writes it
	byName := map[string]NodeSpec{}
	for _, s := range specs {
		byName[s.Name] = s
		for _, w := range s.Writes {
			producer[w] = s.Name
		}
	}

	deps := map[string][]string{} // node name -> node names it depends on
	for _, s := range specs {
		for _, r := range s.Reads {
			if p, ok := producer[r]; ok && p != s.Name {
				deps[s.Name] = append(deps[s.Name], p)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := map[string]int{}
	var order []NodeSpec

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("cycler: dependency cycle detected at node %q", name)
		}
		state[name] = visiting
		for _, dep := range deps[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = visited
		order = append(order, byName[name])
		return nil
	}

	for _, s := range specs {
		if err := visit(s.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
