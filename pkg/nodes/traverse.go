package nodes

import (
	"github.com/dukex/pvm/pkg/process"
)

// Start returns the nodes an execution of definition begins with.
func Start(definition *process.Definition, env Env) ([]Node, error) {
	return Expand(definition, definition.First(), env)
}

func advance(definition *process.Definition, from *process.NodeSpec, env Env) ([]Node, error) {
	return Expand(definition, definition.Following(from), env)
}

// Expand turns a continuation into concrete nodes. if chains are evaluated
// against the scope at each member, parallel nodes fork into the first node
// of every branch, and blocks with no nodes fall through to whatever
// follows them. The end of the document yields no nodes.
func Expand(definition *process.Definition, next process.Continuation, env Env) ([]Node, error) {
	if next.Join != nil {
		return []Node{&Join{base{spec: next.Join}}}, nil
	}

	spec := next.Node
	if spec == nil {
		return nil, nil
	}

	switch spec.Type {
	case process.NodeTypeIf, process.NodeTypeElif, process.NodeTypeElse:
		return branch(definition, spec, env)
	case process.NodeTypeParallel:
		return fork(definition, spec, env)
	}

	node, err := Make(spec)
	if err != nil {
		return nil, err
	}

	return []Node{node}, nil
}

func branch(definition *process.Definition, spec *process.NodeSpec, env Env) ([]Node, error) {
	for _, member := range definition.Chain(spec) {
		matched := member.Type == process.NodeTypeElse

		if !matched {
			if member.Expression == nil {
				return nil, &CannotMoveError{NodeID: member.ID, Reason: "condition was never compiled"}
			}

			scope, err := env.Scope(member)
			if err != nil {
				return nil, err
			}

			matched, err = member.Expression.Eval(scope)
			if err != nil {
				return nil, &CannotMoveError{NodeID: member.ID, Reason: "condition could not be evaluated", Err: err}
			}
		}

		if !matched {
			continue
		}

		if len(member.Block) == 0 {
			return advance(definition, member, env)
		}

		return Expand(definition, process.Continuation{Node: member.Block[0]}, env)
	}

	return advance(definition, spec, env)
}

func fork(definition *process.Definition, spec *process.NodeSpec, env Env) ([]Node, error) {
	var result []Node

	for _, branch := range spec.Branches {
		if len(branch) == 0 {
			continue
		}

		nodes, err := Expand(definition, process.Continuation{Node: branch[0]}, env)
		if err != nil {
			return nil, err
		}

		result = append(result, nodes...)
	}

	if len(result) == 0 {
		return advance(definition, spec, env)
	}

	return result, nil
}
