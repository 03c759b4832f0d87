// Package cli is a small command-tree CLI framework: nested commands, typed flags (local and persistent), positional-arg validation, generated help, and error to
// exit-code mapping.
package cli

// RunFunc is a command handler.
type RunFunc func(c *Context) error

// ArgsFunc validates positional args. Returning a UsageError prints usage and exits with 2.
type ArgsFunc func(args []string) error

// Command is one node of a command tree.
type Command struct {
	Name    string   // token that selects this command
	Aliases []string // additional tokens

	Short   string
	Long    string
	Example string

	Args ArgsFunc // optional
	Run  RunFunc  // optional; a command without Run only groups subcommands

	parent     *Command
	children   []*Command
	local      *FlagSet
	persistent *FlagSet
}

// AddCommand attaches children to c. It panics on nil, unnamed, or already-attached children.
func (c *Command) AddCommand(children ...*Command) {
	for _, child := range children {
		switch {
		case child == nil:
			panic("cli: AddCommand called with nil child")
		case child.parent != nil:
			panic("cli: AddCommand called with a child already attached to a parent")
		case child.Name == "":
			panic("cli: AddCommand called with a child with empty Name")
		}
		child.parent = c
		c.children = append(c.children, child)
	}
}

// Commands returns a copy of c's direct children.
func (c *Command) Commands() []*Command {
	return append([]*Command(nil), c.children...)
}

// Flags returns the flags that apply to c only.
func (c *Command) Flags() *FlagSet {
	if c.local == nil {
		c.local = newFlagSet()
	}
	return c.local
}

// PersistentFlags returns the flags that apply to c and all of its descendants.
func (c *Command) PersistentFlags() *FlagSet {
	if c.persistent == nil {
		c.persistent = newFlagSet()
	}
	return c.persistent
}

func (c *Command) child(token string) *Command {
	for _, ch := range c.children {
		if ch.Name == token {
			return ch
		}
		for _, a := range ch.Aliases {
			if a == token {
				return ch
			}
		}
	}
	return nil
}

// lineage returns the commands from the root down to c.
func (c *Command) lineage() []*Command {
	var out []*Command
	for cur := c; cur != nil; cur = cur.parent {
		out = append([]*Command{cur}, out...)
	}
	return out
}
