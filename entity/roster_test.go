package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRoster() *Roster {
	return &Roster{
		ServiceDate: "2025-06-01",
		Label:       "Sunday Service",
		Leadership: map[LeadershipRole]MemberRef{
			OfferingPrayer: {ID: "cory", Name: "Cory"},
			Conductor:      {ID: "alex", Name: "Alex"},
		},
		SupportTeam:  []MemberRef{{ID: "bea", Name: "Bea"}, {ID: "cory", Name: "Cory"}},
		GreetingTeam: []MemberRef{{ID: "dana", Name: "Dana & Co"}},
		SpecialAppearances: []Appearance{
			{Member: MemberRef{ID: "eli", Name: "Eli"}, Type: AppearanceWorship},
		},
		ConfirmedMembers: []string{"bea"},
	}
}

func TestAssignmentsOrder(t *testing.T) {
	r := testRoster()

	assert.Equal(t, []string{"alex", "cory", "bea", "cory", "dana", "eli"}, r.RecipientAddresses())

	assignments := r.Assignments()
	assert.Equal(t, Assignment{Category: CategoryLeadership, Role: string(Conductor), Member: MemberRef{ID: "alex", Name: "Alex"}}, assignments[0])
	assert.Equal(t, Assignment{Category: CategoryAppearance, Role: string(AppearanceWorship), Member: MemberRef{ID: "eli", Name: "Eli"}}, assignments[5])
}

func TestProject(t *testing.T) {
	r := testRoster()

	p := r.Project("cory")
	assert.True(t, p.IsAssigned)
	assert.False(t, p.HasConfirmed)
	assert.Len(t, p.Assignments, 2)

	p = r.Project("bea")
	assert.True(t, p.IsAssigned)
	assert.True(t, p.HasConfirmed)

	p = r.Project("stranger")
	assert.False(t, p.IsAssigned)
	assert.False(t, p.HasConfirmed)
	assert.Empty(t, p.Assignments)

	p = r.Project("")
	assert.False(t, p.IsAssigned)
	assert.False(t, p.HasConfirmed)
}

func TestMemberName(t *testing.T) {
	r := testRoster()
	assert.Equal(t, "Bea", r.MemberName("bea"))
	assert.Equal(t, "ghost", r.MemberName("ghost"))
}

func TestRoleAndTypeValidation(t *testing.T) {
	assert.True(t, Officiant.Valid())
	assert.False(t, LeadershipRole("drummer").Valid())
	assert.True(t, AppearanceTestimony.Valid())
	assert.False(t, AppearanceType("").Valid())
}

func TestDates(t *testing.T) {
	r := testRoster()

	assert.Equal(t, "Sunday Service (Sunday, 01.06.2025)", r.Alias("en"))
	assert.Equal(t, "June 1, 2025", r.LongDate("en"))

	r.ServiceDate = "soon"
	assert.Equal(t, "Sunday Service (soon)", r.Alias("en"))
	assert.Equal(t, "soon", r.LongDate("en"))
}

func TestSummaryString(t *testing.T) {
	summary := testRoster().SummaryString("en")

	assert.Contains(t, summary, "<b>Leadership:</b>\n - Conductor: Alex\n - Offering prayer: Cory")
	assert.Contains(t, summary, "<b>Support team:</b>\n - Bea ✅\n - Cory")
	assert.Contains(t, summary, " - Dana &amp; Co")
	assert.Contains(t, summary, " - Eli (worship)")
}
