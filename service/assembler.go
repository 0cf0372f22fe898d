package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/util"
	"golang.org/x/exp/slices"
)

type AppearanceInput struct {
	MemberID string                `json:"memberId" schema:"memberId"`
	Type     entity.AppearanceType `json:"type" schema:"type"`
}

// RosterInput is a roster submission. Members are referenced by directory id.
type RosterInput struct {
	ServiceDate        string                           `json:"serviceDate"`
	Label              string                           `json:"label"`
	Leadership         map[entity.LeadershipRole]string `json:"leadership"`
	SupportTeam        []string                         `json:"supportTeam"`
	GreetingTeam       []string                         `json:"greetingTeam"`
	SpecialAppearances []AppearanceInput                `json:"specialAppearances"`
}

type AssemblyReport struct {
	// Unresolved holds ids the directory did not know. Their slots were dropped.
	Unresolved []string `json:"unresolved,omitempty"`
}

type Assembler struct {
	memberDirectory  MemberDirectory
	rejectUnresolved bool
}

func NewAssembler(memberDirectory MemberDirectory, rejectUnresolved bool) *Assembler {
	return &Assembler{
		memberDirectory:  memberDirectory,
		rejectUnresolved: rejectUnresolved,
	}
}

// Assemble validates input and resolves every member id into a snapshot.
// When existing is set the result keeps its identity and confirmations.
func (a *Assembler) Assemble(ctx context.Context, input RosterInput, existing *entity.Roster) (*entity.Roster, *AssemblyReport, error) {
	serviceDate, err := helpers.ParseServiceDate(strings.TrimSpace(input.ServiceDate))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidServiceDate, input.ServiceDate)
	}

	for role := range input.Leadership {
		if !role.Valid() {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
	}

	appearances, err := dedupeAppearances(input.SpecialAppearances)
	if err != nil {
		return nil, nil, err
	}
	supportIDs := util.UniqueStrings(trimIDs(input.SupportTeam))
	greetingIDs := util.UniqueStrings(trimIDs(input.GreetingTeam))

	if len(greetingIDs) > entity.GreetingTeamCapacity {
		return nil, nil, fmt.Errorf("%w: greeting team holds at most %d members, got %d",
			ErrCapacityExceeded, entity.GreetingTeamCapacity, len(greetingIDs))
	}
	if len(appearances) > entity.SpecialAppearancesCapacity {
		return nil, nil, fmt.Errorf("%w: at most %d special appearances, got %d",
			ErrCapacityExceeded, entity.SpecialAppearancesCapacity, len(appearances))
	}

	label := strings.TrimSpace(input.Label)
	if label == "" {
		label = entity.DefaultLabel
	}

	r := &resolver{
		ctx:             ctx,
		memberDirectory: a.memberDirectory,
		cache:           map[string]*entity.MemberRef{},
		report:          &AssemblyReport{},
	}

	roster := &entity.Roster{
		ServiceDate:        serviceDate,
		Label:              label,
		Leadership:         map[entity.LeadershipRole]entity.MemberRef{},
		SupportTeam:        []entity.MemberRef{},
		GreetingTeam:       []entity.MemberRef{},
		SpecialAppearances: []entity.Appearance{},
		ConfirmedMembers:   []string{},
	}

	for _, role := range entity.LeadershipRoles {
		id := strings.TrimSpace(input.Leadership[role])
		if id == "" {
			continue
		}
		ref, err := r.resolve(id)
		if err != nil {
			return nil, nil, err
		}
		if ref != nil {
			roster.Leadership[role] = *ref
		}
	}

	for _, id := range supportIDs {
		ref, err := r.resolve(id)
		if err != nil {
			return nil, nil, err
		}
		if ref != nil {
			roster.SupportTeam = append(roster.SupportTeam, *ref)
		}
	}

	for _, id := range greetingIDs {
		ref, err := r.resolve(id)
		if err != nil {
			return nil, nil, err
		}
		if ref != nil {
			roster.GreetingTeam = append(roster.GreetingTeam, *ref)
		}
	}

	for _, appearance := range appearances {
		ref, err := r.resolve(appearance.MemberID)
		if err != nil {
			return nil, nil, err
		}
		if ref != nil {
			roster.SpecialAppearances = append(roster.SpecialAppearances, entity.Appearance{Member: *ref, Type: appearance.Type})
		}
	}

	if len(r.report.Unresolved) > 0 && a.rejectUnresolved {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnresolvedMember, strings.Join(r.report.Unresolved, ", "))
	}

	if len(roster.Assignments()) == 0 {
		return nil, nil, ErrEmptySubmission
	}

	if existing != nil {
		roster.ID = existing.ID
		roster.CreatedAt = existing.CreatedAt
		if existing.ConfirmedMembers != nil {
			roster.ConfirmedMembers = slices.Clone(existing.ConfirmedMembers)
		}
	}
	roster.AssignedAddresses = roster.RecipientAddresses()

	return roster, r.report, nil
}

// dedupeAppearances keeps one entry per member at its first position. A
// repeated member overrides the appearance type.
func dedupeAppearances(inputs []AppearanceInput) ([]AppearanceInput, error) {
	index := map[string]int{}
	var appearances []AppearanceInput

	for _, in := range inputs {
		id := strings.TrimSpace(in.MemberID)
		if id == "" {
			continue
		}
		if !in.Type.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAppearanceType, in.Type)
		}

		if i, ok := index[id]; ok {
			appearances[i].Type = in.Type
			continue
		}
		index[id] = len(appearances)
		appearances = append(appearances, AppearanceInput{MemberID: id, Type: in.Type})
	}

	return appearances, nil
}

func trimIDs(ids []string) []string {
	trimmed := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			trimmed = append(trimmed, id)
		}
	}
	return trimmed
}

// resolver looks each member up once per submission.
type resolver struct {
	ctx             context.Context
	memberDirectory MemberDirectory
	cache           map[string]*entity.MemberRef
	report          *AssemblyReport
}

// resolve returns nil without error for ids the directory does not know.
func (r *resolver) resolve(id string) (*entity.MemberRef, error) {
	if ref, ok := r.cache[id]; ok {
		return ref, nil
	}

	member, err := r.memberDirectory.Resolve(r.ctx, id)
	if errors.Is(err, ErrNotFound) {
		r.cache[id] = nil
		r.report.Unresolved = append(r.report.Unresolved, id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve member %s: %w", id, err)
	}

	ref := member.Ref()
	r.cache[id] = &ref
	return &ref, nil
}
