package entry

import (
	"github.com/mamala42/remix/transition"
)

// Navigator is the host history capability.
type Navigator interface {
	Push(loc transition.Location)
	Replace(loc transition.Location)
}

// guardedNavigator demotes a push to a replace while the machine is not
// idle, so an interrupting navigation never leaves a stale history entry
// for the superseded one.
type guardedNavigator struct {
	host    Navigator
	machine transition.Machine
}

// GuardNavigator wraps the host navigator with the push demotion rule.
func GuardNavigator(host Navigator, machine transition.Machine) Navigator {
	return &guardedNavigator{host: host, machine: machine}
}

func (n *guardedNavigator) Push(loc transition.Location) {
	switch n.machine.State().Transition.State {
	case transition.StateSubmitting, transition.StateLoading:
		n.host.Replace(loc)
	default:
		n.host.Push(loc)
	}
}

func (n *guardedNavigator) Replace(loc transition.Location) {
	n.host.Replace(loc)
}
