package app

import (
	"errors"
	"fmt"
	"net/mail"

	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/hyperworkchat/hyperwork/internal/auth"
	"github.com/hyperworkchat/hyperwork/internal/config"
	"github.com/hyperworkchat/hyperwork/internal/models"
)

var errRequired = errors.New("this field is required")

func validateEmail(s string) error {
	if s == "" {
		return errRequired
	}

	_, err := mail.ParseAddress(s)
	if err != nil {
		return errors.New("enter a valid email address")
	}

	return nil
}

func validatePassword(s string) error {
	if len(s) < 6 {
		return errors.New("use at least 6 characters")
	}

	return nil
}

// credentialFields returns the inputs for whichever of email and password
// are still empty.
func credentialFields(email, password *string) []huh.Field {
	var fields []huh.Field

	if *email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(email).
			Validate(validateEmail))
	}

	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(validatePassword))
	}

	return fields
}

// promptRegistration asks for the registration fields that were not given
// as flags.
func promptRegistration(r *auth.Registration) error {
	role := string(r.Role)

	groups := []*huh.Group{}

	if fields := credentialFields(&r.Email, &r.Password); len(fields) > 0 {
		groups = append(groups, huh.NewGroup(fields...))
	}

	groups = append(groups,
		huh.NewGroup(
			huh.NewInput().
				Title("First name").
				Value(&r.FirstName),
			huh.NewInput().
				Title("Last name").
				Value(&r.LastName),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("I am a").
				Options(
					huh.NewOption("Student", string(models.RoleStudent)).Selected(true),
					huh.NewOption("Teacher", string(models.RoleTeacher)),
				).
				Value(&role),
			huh.NewInput().
				Title("Class section (e.g. 10A)").
				Value(&r.ClassSection),
		),
	)

	err := huh.NewForm(groups...).Run()
	if err != nil {
		return fmt.Errorf("form interaction failed: %w", err)
	}

	r.Role = models.Role(role)

	return nil
}

func registrationFromFlags(ctx *cli.Context) auth.Registration {
	r := auth.Registration{
		Email:            ctx.String("email"),
		Password:         ctx.String("password"),
		FirstName:        ctx.String("first-name"),
		LastName:         ctx.String("last-name"),
		ClassSection:     ctx.String("class"),
		WorkDays:         ctx.StringSlice("work-days"),
		DailyWorkMinutes: ctx.Int("daily-minutes"),
		Role:             models.RoleStudent,
	}

	if ctx.Bool("teacher") {
		r.Role = models.RoleTeacher
	}

	return r
}

// registerAction creates an account and signs in with it.
func registerAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	r := registrationFromFlags(ctx)

	if r.Email == "" || r.Password == "" {
		err = promptRegistration(&r)
		if err != nil {
			return err
		}
	}

	_, err = s.auth.Register(ctx.Context, r)
	if err != nil {
		return err
	}

	p, err := s.provider.Login(ctx.Context, r.Email, r.Password)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Welcome to HyperWork, %s! You are signed in.", p.DisplayName())

	return nil
}

// loginAction signs in and stores the token for later commands.
func loginAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	email, password := ctx.String("email"), ctx.String("password")

	if fields := credentialFields(&email, &password); len(fields) > 0 {
		err = huh.NewForm(huh.NewGroup(fields...)).Run()
		if err != nil {
			return fmt.Errorf("form interaction failed: %w", err)
		}
	}

	p, err := s.provider.Login(ctx.Context, email, password)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Signed in as %s", p.DisplayName())

	return nil
}

func logoutAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	err = s.provider.Logout()
	if err != nil {
		return err
	}

	pterm.Success.Println("Signed out")

	return nil
}

// profileAction prints the signed-in user's profile.
func profileAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	p := s.provider.Profile(ctx.Context, u.ID)

	if ctx.Bool("json") {
		return printJSON(config.Stdout, p)
	}

	printProfile(config.Stdout, &p)

	return nil
}

// profileUpdateFromFlags starts from the current profile and applies the
// flags that were set. It reports whether any flag was set.
func profileUpdateFromFlags(ctx *cli.Context, p *models.Profile) (auth.ProfileUpdate, bool) {
	upd := auth.ProfileUpdate{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		ClassSection:     p.ClassSection,
		WorkDays:         p.WorkDays,
		DailyWorkMinutes: p.DailyWorkMinutes,
	}

	var changed bool

	if ctx.IsSet("first-name") {
		upd.FirstName = ctx.String("first-name")
		changed = true
	}

	if ctx.IsSet("last-name") {
		upd.LastName = ctx.String("last-name")
		changed = true
	}

	if ctx.IsSet("class") {
		upd.ClassSection = ctx.String("class")
		changed = true
	}

	if ctx.IsSet("work-days") {
		upd.WorkDays = ctx.StringSlice("work-days")
		changed = true
	}

	if ctx.IsSet("daily-minutes") {
		upd.DailyWorkMinutes = ctx.Int("daily-minutes")
		changed = true
	}

	return upd, changed
}

func promptProfileUpdate(upd *auth.ProfileUpdate) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("First name").
				Value(&upd.FirstName),
			huh.NewInput().
				Title("Last name").
				Value(&upd.LastName),
			huh.NewInput().
				Title("Class section").
				Value(&upd.ClassSection),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Work days").
				Options(huh.NewOptions("mon", "tue", "wed", "thu", "fri", "sat", "sun")...).
				Value(&upd.WorkDays),
		),
	)

	err := form.Run()
	if err != nil {
		return fmt.Errorf("form interaction failed: %w", err)
	}

	return nil
}

// profileEditAction updates the signed-in user's profile from the flags, or
// from a form when no flag is given.
func profileEditAction(ctx *cli.Context) error {
	s, err := setup(ctx)
	if err != nil {
		return err
	}

	defer s.Close()

	u, err := s.user()
	if err != nil {
		return err
	}

	current := s.provider.Profile(ctx.Context, u.ID)

	upd, changed := profileUpdateFromFlags(ctx, &current)
	if !changed {
		err = promptProfileUpdate(&upd)
		if err != nil {
			return err
		}
	}

	p, err := editProfile(ctx.Context, profileEditor{
		svc:     s.auth,
		in:      config.Stdin,
		out:     config.Stdout,
		confirm: !ctx.Bool("yes"),
	}, u, &current, upd)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Profile updated for %s", p.DisplayName())

	return nil
}
