package node

// BaseNode provides the identity fields shared by all node implementations.
type BaseNode struct {
	name        string
	description string
	outputKey   string
}

// NewBaseNode creates the embedded base for a node.
func NewBaseNode(name, description string) BaseNode {
	return BaseNode{name: name, description: description}
}

// Name returns the node's identity.
func (b *BaseNode) Name() string { return b.name }

// Description returns a human-readable summary of the node's purpose.
func (b *BaseNode) Description() string { return b.description }

// OutputKey returns the context key the node's output is stored under. Empty
// means the node name is used.
func (b *BaseNode) OutputKey() string { return b.outputKey }

// SetOutputKey overrides the context key the node's output is stored under.
func (b *BaseNode) SetOutputKey(key string) { b.outputKey = key }
