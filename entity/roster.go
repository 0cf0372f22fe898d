package entity

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/joeyave/scala-roster/txt"
	"github.com/joeyave/scala-roster/util"
	"github.com/klauspost/lctime"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/exp/slices"
)

type LeadershipRole string

const (
	Officiant      LeadershipRole = "officiant"
	Conductor      LeadershipRole = "conductor"
	OpeningWord    LeadershipRole = "openingWord"
	OfferingPrayer LeadershipRole = "offeringPrayer"
)

// LeadershipRoles is the fixed set of leadership roles in display order.
var LeadershipRoles = []LeadershipRole{Officiant, Conductor, OpeningWord, OfferingPrayer}

func (r LeadershipRole) Valid() bool {
	return slices.Contains(LeadershipRoles, r)
}

type AppearanceType string

const (
	AppearanceGreeting  AppearanceType = "greeting"
	AppearanceWorship   AppearanceType = "worship"
	AppearanceTestimony AppearanceType = "testimony"
)

var AppearanceTypes = []AppearanceType{AppearanceGreeting, AppearanceWorship, AppearanceTestimony}

func (t AppearanceType) Valid() bool {
	return slices.Contains(AppearanceTypes, t)
}

const (
	GreetingTeamCapacity       = 3
	SpecialAppearancesCapacity = 4

	DefaultLabel      = "Sunday Service"
	ServiceDateLayout = "2006-01-02"
)

// MemberRef is a snapshot of a directory member taken at assignment time.
// Published rosters keep the snapshot even if the directory record changes.
type MemberRef struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

type Appearance struct {
	Member MemberRef      `bson:"member" json:"member"`
	Type   AppearanceType `bson:"type" json:"type"`
}

type Roster struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	ServiceDate string        `bson:"serviceDate" json:"serviceDate"`
	Label       string        `bson:"label" json:"label"`

	Leadership         map[LeadershipRole]MemberRef `bson:"leadership,omitempty" json:"leadership,omitempty"`
	SupportTeam        []MemberRef                  `bson:"supportTeam" json:"supportTeam"`
	GreetingTeam       []MemberRef                  `bson:"greetingTeam" json:"greetingTeam"`
	SpecialAppearances []Appearance                 `bson:"specialAppearances" json:"specialAppearances"`

	ConfirmedMembers  []string `bson:"confirmedMembers" json:"confirmedMembers"`
	AssignedAddresses []string `bson:"assignedAddresses" json:"-"`

	PendingBatches []*NotificationBatch `bson:"pendingBatches,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type AssignmentCategory string

const (
	CategoryLeadership AssignmentCategory = "leadership"
	CategorySupport    AssignmentCategory = "support"
	CategoryGreeting   AssignmentCategory = "greeting"
	CategoryAppearance AssignmentCategory = "appearance"
)

// Assignment is one slot a member occupies in a roster. Role holds the
// leadership role or the appearance type and is empty for the teams.
type Assignment struct {
	Category AssignmentCategory `json:"category"`
	Role     string             `json:"role,omitempty"`
	Member   MemberRef          `json:"member"`
}

// Assignments lists every slot: leadership in fixed role order, then support,
// greeting and appearances in stored order.
func (r *Roster) Assignments() []Assignment {
	var assignments []Assignment
	for _, role := range LeadershipRoles {
		member, ok := r.Leadership[role]
		if !ok || member.ID == "" {
			continue
		}
		assignments = append(assignments, Assignment{Category: CategoryLeadership, Role: string(role), Member: member})
	}
	for _, member := range r.SupportTeam {
		assignments = append(assignments, Assignment{Category: CategorySupport, Member: member})
	}
	for _, member := range r.GreetingTeam {
		assignments = append(assignments, Assignment{Category: CategoryGreeting, Member: member})
	}
	for _, appearance := range r.SpecialAppearances {
		assignments = append(assignments, Assignment{Category: CategoryAppearance, Role: string(appearance.Type), Member: appearance.Member})
	}
	return assignments
}

// RecipientAddresses returns one address per assignment. A member holding
// two slots appears twice.
func (r *Roster) RecipientAddresses() []string {
	assignments := r.Assignments()
	addresses := make([]string, 0, len(assignments))
	for _, a := range assignments {
		addresses = append(addresses, a.Member.ID)
	}
	return addresses
}

func (r *Roster) IsAssigned(memberID string) bool {
	return slices.ContainsFunc(r.Assignments(), func(a Assignment) bool {
		return a.Member.ID == memberID
	})
}

func (r *Roster) HasConfirmed(memberID string) bool {
	return slices.Contains(r.ConfirmedMembers, memberID)
}

func (r *Roster) MemberName(memberID string) string {
	for _, a := range r.Assignments() {
		if a.Member.ID == memberID {
			return a.Member.Name
		}
	}
	return memberID
}

type Projection struct {
	IsAssigned   bool         `json:"isAssigned"`
	HasConfirmed bool         `json:"hasConfirmed"`
	Assignments  []Assignment `json:"assignmentSummary"`
}

// Project renders the roster from the point of view of viewerID.
func (r *Roster) Project(viewerID string) Projection {
	p := Projection{
		HasConfirmed: viewerID != "" && r.HasConfirmed(viewerID),
	}
	if viewerID == "" {
		return p
	}
	for _, a := range r.Assignments() {
		if a.Member.ID == viewerID {
			p.Assignments = append(p.Assignments, a)
		}
	}
	p.IsAssigned = len(p.Assignments) > 0
	return p
}

func (r *Roster) Date() (time.Time, error) {
	return time.Parse(ServiceDateLayout, r.ServiceDate)
}

func (r *Roster) Alias(lang string) string {
	date, err := r.Date()
	if err != nil {
		return fmt.Sprintf("%s (%s)", r.Label, r.ServiceDate)
	}
	t, err := lctime.StrftimeLoc(util.IetfToIsoLangCode(lang), "%A, %d.%m.%Y", date)
	if err != nil {
		t = date.Format("Monday, 02.01.2006")
	}
	return fmt.Sprintf("%s (%s)", r.Label, t)
}

// LongDate formats the service date with the translator of lang.
func (r *Roster) LongDate(lang string) string {
	date, err := r.Date()
	if err != nil {
		return r.ServiceDate
	}
	return txt.GetTranslator(lang).FmtDateLong(date)
}

// SummaryString renders the assignments as telegram HTML.
func (r *Roster) SummaryString(lang string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s</b>", html.EscapeString(r.Alias(lang)))

	var currCategory AssignmentCategory
	for _, a := range r.Assignments() {
		if a.Category != currCategory {
			currCategory = a.Category
			fmt.Fprintf(&b, "\n\n<b>%s:</b>", txt.Get(categoryKey(a.Category), lang))
		}

		name := html.EscapeString(a.Member.Name)
		switch a.Category {
		case CategoryLeadership:
			fmt.Fprintf(&b, "\n - %s: %s", txt.Get("role."+a.Role, lang), name)
		case CategoryAppearance:
			fmt.Fprintf(&b, "\n - %s (%s)", name, txt.Get("appearance."+a.Role, lang))
		default:
			fmt.Fprintf(&b, "\n - %s", name)
		}
		if r.HasConfirmed(a.Member.ID) {
			b.WriteString(" ✅")
		}
	}

	return b.String()
}

func categoryKey(c AssignmentCategory) string {
	switch c {
	case CategoryLeadership:
		return "text.leadership"
	case CategorySupport:
		return "text.supportTeam"
	case CategoryGreeting:
		return "text.greetingTeam"
	default:
		return "text.specialAppearances"
	}
}

type RosterChangeType string

const (
	RosterInserted RosterChangeType = "insert"
	RosterUpdated  RosterChangeType = "update"
	RosterDeleted  RosterChangeType = "delete"
)

// RosterChange is one item of the store change feed. Roster is nil for deletes.
type RosterChange struct {
	Type     RosterChangeType
	RosterID bson.ObjectID
	Roster   *Roster
}
