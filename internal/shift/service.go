package shift

import (
	"context"
	"fmt"
	"time"

	"oee-tracker/internal/storage"
)

type ShiftStorage interface {
	GetMachine(ctx context.Context, id int64) (*storage.Machine, error)
	GetShiftDefinitions(ctx context.Context, scope string, scopeID int64) ([]storage.ShiftDefinition, error)
}

// Service answers "what shift is it right now" for a machine.
type Service struct {
	storage ShiftStorage
	loc     *time.Location
}

func NewService(storage ShiftStorage, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{storage: storage, loc: loc}
}

func (s *Service) Current(ctx context.Context, machineID int64, at time.Time) (Context, bool, error) {
	const op = "shift.Service.Current"

	machine, err := s.storage.GetMachine(ctx, machineID)
	if err != nil {
		return Context{}, false, fmt.Errorf("%s: machine id=%d: %w", op, machineID, err)
	}

	machineShifts, err := s.storage.GetShiftDefinitions(ctx, storage.ShiftScopeMachine, machine.ID)
	if err != nil {
		return Context{}, false, fmt.Errorf("%s: machine shifts: %w", op, err)
	}

	shifts := machineShifts
	if len(shifts) == 0 {
		shifts, err = s.storage.GetShiftDefinitions(ctx, storage.ShiftScopePlant, machine.PlantID)
		if err != nil {
			return Context{}, false, fmt.Errorf("%s: plant shifts: %w", op, err)
		}
	}

	sc, ok := ResolveShift(SelectSchedule(machineShifts, shifts), at.In(s.loc))
	return sc, ok, nil
}
