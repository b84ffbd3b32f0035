package spreadsheet

// DependencyNode represents a cell in the dependency graph
type DependencyNode struct {
	// identity of *THIS* node
	Key CellKey

	// cell-to-cell dependencies, counted because one formula may read the
	// same cell through several references
	CellPrecedents map[CellKey]int // cells this cell reads
	CellDependents map[CellKey]int // cells that read this cell
}

// DependencyGraph records which concrete cell every live reference is
// currently subscribed to. Edges are added before a reference subscribes
// and removed when it unsubscribes, so the graph always mirrors the
// subscriptions of the reactive graph and can refuse the one that would
// close a cycle.
type DependencyGraph struct {
	nodes map[CellKey]*DependencyNode // all nodes in the graph

	// watchers waiting for any edge to disappear, see OnRelease
	watchers  map[int]func()
	nextWatch int
	pending   []func()
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:    make(map[CellKey]*DependencyNode),
		watchers: make(map[int]func()),
	}
}

// GetOrCreateNode gets an existing node or creates a new one
func (dg *DependencyGraph) GetOrCreateNode(key CellKey) *DependencyNode {
	if node, exists := dg.nodes[key]; exists {
		return node
	}

	node := &DependencyNode{
		Key:            key,
		CellPrecedents: make(map[CellKey]int),
		CellDependents: make(map[CellKey]int),
	}
	dg.nodes[key] = node
	return node
}

// RemoveNode removes a node and all its dependencies
func (dg *DependencyGraph) RemoveNode(key CellKey) bool {
	node, exists := dg.nodes[key]
	if !exists {
		return false
	}

	// remove this node from all its precedents' dependent lists
	for precedent := range node.CellPrecedents {
		if precedentNode, ok := dg.nodes[precedent]; ok {
			delete(precedentNode.CellDependents, key)
			dg.cleanupNodeIfEmpty(precedent)
		}
	}

	// remove this node from all its dependents' precedent lists
	for dependent := range node.CellDependents {
		if dependentNode, ok := dg.nodes[dependent]; ok {
			delete(dependentNode.CellPrecedents, key)
			dg.cleanupNodeIfEmpty(dependent)
		}
	}

	delete(dg.nodes, key)
	dg.released()
	return true
}

// cleanupNodeIfEmpty removes a node if it has no dependencies
func (dg *DependencyGraph) cleanupNodeIfEmpty(key CellKey) {
	node, exists := dg.nodes[key]
	if !exists {
		return
	}
	if len(node.CellPrecedents) > 0 || len(node.CellDependents) > 0 {
		return
	}
	delete(dg.nodes, key)
}

// AddCellDependency adds a cell-to-cell dependency (from depends on to)
func (dg *DependencyGraph) AddCellDependency(from, to CellKey) {
	fromNode := dg.GetOrCreateNode(from)
	toNode := dg.GetOrCreateNode(to)

	fromNode.CellPrecedents[to]++
	toNode.CellDependents[from]++
}

// RemoveCellDependency drops one count of a cell-to-cell dependency
func (dg *DependencyGraph) RemoveCellDependency(from, to CellKey) bool {
	fromNode, fromExists := dg.nodes[from]
	toNode, toExists := dg.nodes[to]

	if !fromExists || !toExists || fromNode.CellPrecedents[to] == 0 {
		return false
	}

	fromNode.CellPrecedents[to]--
	toNode.CellDependents[from]--
	if fromNode.CellPrecedents[to] <= 0 {
		delete(fromNode.CellPrecedents, to)
		delete(toNode.CellDependents, from)
		dg.released()
	}

	dg.cleanupNodeIfEmpty(from)
	dg.cleanupNodeIfEmpty(to)
	return true
}

// Reaches reports whether from transitively reads to.
func (dg *DependencyGraph) Reaches(from, to CellKey) bool {
	if from == to {
		return true
	}
	visited := make(map[CellKey]struct{})
	stack := []CellKey{from}
	for len(stack) > 0 {
		key := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		node, exists := dg.nodes[key]
		if !exists {
			continue
		}
		for precedent := range node.CellPrecedents {
			if precedent == to {
				return true
			}
			stack = append(stack, precedent)
		}
	}
	return false
}

// OnRelease registers fn to run once, the next time any edge leaves the
// graph. The returned function unregisters it. Callbacks are queued, never
// run from inside the removal itself; the owner runs them with Drain.
func (dg *DependencyGraph) OnRelease(fn func()) (cancel func()) {
	id := dg.nextWatch
	dg.nextWatch++
	dg.watchers[id] = fn
	return func() { delete(dg.watchers, id) }
}

func (dg *DependencyGraph) released() {
	for id, fn := range dg.watchers {
		dg.pending = append(dg.pending, fn)
		delete(dg.watchers, id)
	}
}

// Drain runs queued release callbacks until none are left. It returns the
// number of callbacks that ran.
func (dg *DependencyGraph) Drain() int {
	ran := 0
	for len(dg.pending) > 0 {
		fn := dg.pending[0]
		dg.pending = dg.pending[1:]
		fn()
		ran++
	}
	return ran
}

// GetAllDependents returns all cells affected by this cell (transitive closure)
func (dg *DependencyGraph) GetAllDependents(key CellKey) []CellKey {
	visited := make(map[CellKey]struct{})
	var result []CellKey

	dg.collectDependents(key, visited, &result)
	return result
}

// collectDependents recursively collects all dependents
func (dg *DependencyGraph) collectDependents(key CellKey, visited map[CellKey]struct{}, result *[]CellKey) {
	if _, alreadyVisited := visited[key]; alreadyVisited {
		return
	}
	visited[key] = struct{}{}

	node, exists := dg.nodes[key]
	if !exists {
		return
	}

	for dependent := range node.CellDependents {
		if _, alreadyVisited := visited[dependent]; !alreadyVisited {
			*result = append(*result, dependent)
			dg.collectDependents(dependent, visited, result)
		}
	}
}

// GetDirectPrecedents returns cells this cell directly depends on
func (dg *DependencyGraph) GetDirectPrecedents(key CellKey) []CellKey {
	node, exists := dg.nodes[key]
	if !exists {
		return nil
	}

	result := make([]CellKey, 0, len(node.CellPrecedents))
	for precedent := range node.CellPrecedents {
		result = append(result, precedent)
	}
	return result
}

// GetCalculationOrder returns the nodes with precedents before dependents.
// The second result reports whether a cycle was found, which would mean a
// reference slipped past the Reaches check.
func (dg *DependencyGraph) GetCalculationOrder() ([]CellKey, bool) {
	// three states: unvisited (not in map), visiting (false), visited (true)
	state := make(map[CellKey]bool)
	var order []CellKey
	hasCycle := false

	var visit func(key CellKey) bool
	visit = func(key CellKey) bool {
		if completed, exists := state[key]; exists {
			// currently visiting means a cycle
			return !completed
		}

		state[key] = false

		if node, exists := dg.nodes[key]; exists {
			for precedent := range node.CellPrecedents {
				if visit(precedent) {
					hasCycle = true
				}
			}
		}

		state[key] = true
		order = append(order, key)
		return false
	}

	for key := range dg.nodes {
		if _, visited := state[key]; !visited {
			if visit(key) {
				hasCycle = true
			}
		}
	}

	return order, hasCycle
}

// HasCycle checks if there are circular dependencies
func (dg *DependencyGraph) HasCycle() bool {
	_, hasCycle := dg.GetCalculationOrder()
	return hasCycle
}

// NodeCount returns the number of nodes in the graph
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}
