package corpus

import (
	"strconv"
	"strings"
)

// Namer assigns artifact names that are unique case-insensitively within
// one run. Opcodes must be named in increasing order.
type Namer struct {
	used     map[string]bool
	byOpcode map[int]string
}

// NewNamer returns an empty name table.
func NewNamer() *Namer {
	return &Namer{
		used:     make(map[string]bool),
		byOpcode: make(map[int]string),
	}
}

// Name returns the artifact name for opcode. The mnemonic is used as is;
// on a collision "-1" is appended, and the suffix is incremented until the
// name is free. The lower-cased result is recorded for opcode.
func (n *Namer) Name(opcode int, mnemonic string) string {
	name := mnemonic
	for k := 1; n.used[strings.ToLower(name)]; k++ {
		name = mnemonic + "-" + strconv.Itoa(k)
	}
	lower := strings.ToLower(name)
	n.used[lower] = true
	n.byOpcode[opcode] = lower
	return name
}

// Lookup returns the recorded lower-cased name of opcode.
func (n *Namer) Lookup(opcode int) (string, bool) {
	name, ok := n.byOpcode[opcode]
	return name, ok
}

// Len returns the number of names assigned.
func (n *Namer) Len() int { return len(n.byOpcode) }
