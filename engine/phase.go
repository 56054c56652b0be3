package engine

import (
	"context"

	"github.com/looplab/fsm"
)

// Session phases. The only transition is deploy -> battle.
const (
	PhaseDeploy = "deploy"
	PhaseBattle = "battle"

	eventStartBattle = "start_battle"
)

func newPhaseMachine(onEnter func(phase string)) *fsm.FSM {
	return fsm.NewFSM(
		PhaseDeploy,
		fsm.Events{
			{Name: eventStartBattle, Src: []string{PhaseDeploy}, Dst: PhaseBattle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onEnter(e.Dst)
			},
		},
	)
}
