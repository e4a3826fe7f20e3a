package app

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/hyperworkchat/hyperwork/internal/auth"
	"github.com/hyperworkchat/hyperwork/internal/models"
)

type profileUpdater interface {
	UpdateProfile(ctx context.Context, userID string, upd auth.ProfileUpdate) (models.Profile, error)
}

type profileEditor struct {
	svc     profileUpdater
	in      io.Reader
	out     io.Writer
	confirm bool
}

// editProfile shows the profile as it will look after the update and saves
// it once the user presses ENTER.
func editProfile(
	ctx context.Context,
	ed profileEditor,
	u models.User,
	current *models.Profile,
	upd auth.ProfileUpdate,
) (models.Profile, error) {
	if ed.confirm {
		preview := *current
		preview.FirstName = upd.FirstName
		preview.LastName = upd.LastName
		preview.ClassSection = upd.ClassSection
		preview.WorkDays = upd.WorkDays
		preview.DailyWorkMinutes = upd.DailyWorkMinutes

		printProfile(ed.out, &preview)

		warning := pterm.Warning.Sprint(
			"Your profile will be updated as shown above. Press ENTER to proceed",
		)

		fmt.Fprint(ed.out, warning)

		reader := bufio.NewReader(ed.in)

		_, _ = reader.ReadString('\n')
	}

	return ed.svc.UpdateProfile(ctx, u.ID, upd)
}
