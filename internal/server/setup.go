package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kaplunov-alex/PWMgr/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type SetupService interface {
	IsSetupRequired(ctx context.Context) (bool, error)
	SetupMasterPassword(ctx context.Context, password string) error
}

var ErrPasswordMismatch = errors.New("passwords do not match")

func promptPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	return pw, err
}

// RunSetup asks twice for a new master password on the terminal and
// configures it. It does nothing when a master password already exists.
func RunSetup(ctx context.Context, svc SetupService, w io.Writer) error {
	required, err := svc.IsSetupRequired(ctx)
	if err != nil {
		return err
	}
	if !required {
		fmt.Fprintln(w, "Master password is already configured.")
		return nil
	}

	first, err := promptPassword(w, "New master password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(first)

	second, err := promptPassword(w, "Repeat master password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(second)

	if string(first) != string(second) {
		return ErrPasswordMismatch
	}

	if err := svc.SetupMasterPassword(ctx, string(first)); err != nil {
		return err
	}

	fmt.Fprintln(w, "Master password configured.")
	return nil
}
