package ast

import "encoding/gob"

// init registers every concrete Node kind with the gob encoder so a Node
// value can cross the process boundary during the subshell/background
// re-exec trampoline (see executor/subshell.go).
func init() {
	gob.Register(&Command{})
	gob.Register(&Pipe{})
	gob.Register(&And{})
	gob.Register(&Or{})
	gob.Register(&Sequence{})
	gob.Register(&Background{})
	gob.Register(&Subshell{})
}
