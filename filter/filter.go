package filter

import (
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/assocworks/member-chat/types"
)

// Compile compiles a target-filter expression against the filter Env. An
// empty expression compiles to nil, which passes every recipient.
func Compile(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, nil
	}
	return expr.Compile(expression, expr.Env(Env{}))
}

// Run evaluates a compiled filter for one recipient. A nil program passes;
// evaluation errors or non-boolean results fail closed.
func Run(prog *vm.Program, roomId int64, event string, sender, target *types.User) bool {
	if prog == nil {
		return true
	}
	env := Env{
		RoomId: roomId,
		Sender: Sender{User: envUser(sender)},
		Target: Target{User: envUser(target)},
		Event:  event,
	}
	res, err := expr.Run(prog, env)
	if err != nil {
		return false
	}
	pass, ok := res.(bool)
	return ok && pass
}

func envUser(u *types.User) User {
	if u == nil {
		return User{}
	}
	return User{
		Id:         u.Id,
		Nick:       u.Nick,
		Tags:       u.Tags,
		LastOnline: u.LastOnline.Unix(),
	}
}
