package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"coffre/archive"
	"coffre/config"
	"coffre/crypt"
	"coffre/manager"
)

type uiContext struct {
	// Input
	in LineEditor
	// Output
	out io.Writer

	cfg config.Config
	log *zap.Logger

	filename      string
	shortFilename string

	mgr *manager.Manager
}

func (u *uiContext) setupStore() error {
	var err error
	u.filename, err = filepath.Abs(flagFile)
	if err != nil {
		return err
	}
	u.shortFilename = shortPath(u.filename)

	policy := manager.RejectClose
	if u.cfg.SaveOnClose {
		policy = manager.SaveOnClose
	}
	u.mgr = manager.New(archive.NewDirectProvider(),
		manager.WithLogger(u.log),
		manager.WithClosePolicy(policy))
	return nil
}

// openStore prompts for the master password and opens the archive.
// Three attempts before giving up.
func (u *uiContext) openStore() error {
	for attempt := 0; attempt < 3; attempt++ {
		pwd, err := u.in.LineHidden(inputPromptColor.Sprintf("%s password: ", u.shortFilename))
		if err != nil {
			return err
		}

		_, err = u.mgr.Open(u.filename, pwd)
		if err == nil {
			return nil
		}
		if errors.Is(err, crypt.ErrWrongPassphrase) {
			errColor.Println("incorrect password")
			continue
		}
		return err
	}

	return errors.New("too many failed password attempts")
}

// promptNewPassword asks for a password twice and refuses mismatches.
func (u *uiContext) promptNewPassword(what string) (string, error) {
	for {
		first, err := u.in.LineHidden(inputPromptColor.Sprintf("new %s password: ", what))
		if err != nil {
			return "", err
		}
		second, err := u.in.LineHidden(inputPromptColor.Sprint("verify password: "))
		if err != nil {
			return "", err
		}

		if first == second {
			return first, nil
		}
		errColor.Println("passwords do not match")
	}
}

// saveStore persists and reports, used after every mutating command.
func (u *uiContext) saveStore() error {
	if _, err := u.mgr.Save(); err != nil {
		return err
	}
	fmt.Fprintf(u.out, "saved %s\n", u.shortFilename)
	return nil
}

func shortPath(filename string) string {
	parts := strings.Split(filename, string(filepath.Separator))
	if len(parts) == 1 {
		return filename
	}

	var newParts []string
	for _, p := range parts[:len(parts)-1] {
		if len(p) == 0 {
			newParts = append(newParts, p)
			continue
		}
		newParts = append(newParts, string(p[0]))
	}
	newParts = append(newParts, parts[len(parts)-1])

	return strings.Join(newParts, string(filepath.Separator))
}
