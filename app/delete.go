package app

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

type pickResetter interface {
	Picked(ctx context.Context, u models.User, class string) ([]models.Selection, error)
	Reset(ctx context.Context, u models.User, class string) error
}

// resetPicks clears the teacher's picks for class so that every student can
// be picked again. It requests for confirmation before proceeding with the
// operation.
func resetPicks(
	ctx context.Context,
	svc pickResetter,
	u models.User,
	class string,
	names map[string]string,
	in io.Reader,
	out io.Writer,
	confirm bool,
) (int, error) {
	picked, err := svc.Picked(ctx, u, class)
	if err != nil {
		return 0, err
	}

	if len(picked) == 0 {
		return 0, nil
	}

	if confirm {
		printSelections(out, picked, names)

		warning := pterm.Warning.Sprint(
			"The above picks will be cleared. Press ENTER to proceed",
		)

		fmt.Fprint(out, warning)

		reader := bufio.NewReader(in)

		_, _ = reader.ReadString('\n')
	}

	err = svc.Reset(ctx, u, class)
	if err != nil {
		return 0, err
	}

	return len(picked), nil
}
