package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/hyperworkchat/hyperwork/internal/classroom"
	"github.com/hyperworkchat/hyperwork/internal/exam"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/internal/ui"
)

const (
	noProfilesMsg = "Nobody has earned any points yet"
	noMessagesMsg = "No messages yet. Say hi with 'hyperwork chat send'"
	noGroupsMsg   = "No groups yet. Start one with 'hyperwork group create'"
	noResultsMsg  = "Nobody finished the exam"

	messageTimeFormat = "Jan 02 15:04"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// printProfile prints the fields of a profile as a two column table.
func printProfile(w io.Writer, p *models.Profile) {
	workDays := strings.Join(p.WorkDays, ", ")

	dailyGoal := "-"
	if p.DailyWorkMinutes > 0 {
		dailyGoal = fmt.Sprintf("%d mins", p.DailyWorkMinutes)
	}

	ui.NewTable("FIELD", "VALUE").
		Row("Name", p.DisplayName()).
		Row("Email", p.Email).
		Row("Role", string(p.Role)).
		Row("Class", orDash(p.ClassSection)).
		Row("Work days", orDash(workDays)).
		Row("Daily goal", dailyGoal).
		Row("Points", ui.Green(p.TotalPoints)).
		Print(w)
}

// printLeaderboard prints a ranked table of profiles. The signed-in user's
// row is highlighted.
func printLeaderboard(w io.Writer, profiles []models.Profile, currentID string) {
	if len(profiles) == 0 {
		pterm.Info.WithWriter(w).Println(noProfilesMsg)
		return
	}

	table := ui.NewTable("#", "NAME", "CLASS", "POINTS")

	for i := range profiles {
		p := &profiles[i]

		name := p.DisplayName()
		if p.ID == currentID {
			name = ui.Cyan(name + " (you)")
		}

		table.Row(
			strconv.Itoa(i+1),
			name,
			orDash(p.ClassSection),
			strconv.Itoa(p.TotalPoints),
		)
	}

	table.Print(w)
}

// printRoster prints the class summary followed by the students.
func printRoster(w io.Writer, r *classroom.Roster) {
	sum := r.Summary

	leader := "-"
	if sum.Leader != nil {
		leader = fmt.Sprintf("%s (%d)", sum.Leader.DisplayName(), sum.Leader.TotalPoints)
	}

	fmt.Fprintf(w, "%s %s\n", ui.Blue("Class:"), sum.ClassSection)
	fmt.Fprintf(w, "%s %d\n", ui.Blue("Students:"), sum.Students)
	fmt.Fprintf(w, "%s %d\n", ui.Blue("Total points:"), sum.TotalPoints)
	fmt.Fprintf(w, "%s %.1f\n", ui.Blue("Average:"), sum.Average)
	fmt.Fprintf(w, "%s %s\n\n", ui.Blue("Leader:"), leader)

	printLeaderboard(w, r.Students, "")
}

func printMessage(w io.Writer, m *models.Message) {
	fmt.Fprintf(w, "%s %s %s\n",
		ui.Magenta(m.CreatedAt.Local().Format(messageTimeFormat)),
		ui.Green(m.Author+":"),
		m.Content,
	)
}

func printMessages(w io.Writer, msgs []models.Message) {
	if len(msgs) == 0 {
		pterm.Info.WithWriter(w).Println(noMessagesMsg)
		return
	}

	for i := range msgs {
		printMessage(w, &msgs[i])
	}
}

func printSelections(w io.Writer, sels []models.Selection, names map[string]string) {
	table := ui.NewTable("#", "STUDENT", "PICKED AT")

	for i := range sels {
		name, ok := names[sels[i].StudentID]
		if !ok {
			name = sels[i].StudentID
		}

		table.Row(
			strconv.Itoa(i+1),
			name,
			sels[i].SelectedAt.Local().Format(messageTimeFormat),
		)
	}

	table.Print(w)
}

func printGroups(w io.Writer, groups []models.Group) {
	if len(groups) == 0 {
		pterm.Info.WithWriter(w).Println(noGroupsMsg)
		return
	}

	table := ui.NewTable("ID", "NAME", "CLASS", "DESCRIPTION")

	for i := range groups {
		g := &groups[i]

		table.Row(g.ID, g.Name, orDash(g.ClassSection), orDash(g.Description))
	}

	table.Print(w)
}

// printMembers lists group members by name. Members without a known name are
// shown by id.
func printMembers(w io.Writer, members []models.GroupMember, names map[string]string) {
	table := ui.NewTable("#", "MEMBER", "JOINED")

	for i := range members {
		name, ok := names[members[i].UserID]
		if !ok {
			name = members[i].UserID
		}

		table.Row(
			strconv.Itoa(i+1),
			name,
			members[i].JoinedAt.Local().Format(messageTimeFormat),
		)
	}

	table.Print(w)
}

func printResults(w io.Writer, results []exam.Result) {
	if len(results) == 0 {
		pterm.Info.WithWriter(w).Println(noResultsMsg)
		return
	}

	table := ui.NewTable("#", "STUDENT", "TIME")

	for i := range results {
		table.Row(
			strconv.Itoa(i+1),
			results[i].StudentName,
			results[i].CompletedIn.String(),
		)
	}

	table.Print(w)
}
