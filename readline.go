//go:build linux || darwin

package main

import (
	"io"
	"os"

	"github.com/chzyer/readline"
)

func setupLineEditor(u *uiContext) error {
	var err error
	u.in, err = newReadlineEditor(u.out)
	return err
}

type readlineEditor struct {
	currentPrompt string
	instance      *readline.Instance
	out           io.Writer
}

func newReadlineEditor(out io.Writer) (*readlineEditor, error) {
	instance, err := readline.NewEx(&readline.Config{
		Prompt: "> ",

		HistoryFile:            "",
		HistoryLimit:           1000,
		DisableAutoSaveHistory: true,

		InterruptPrompt: "interrupt",
		EOFPrompt:       "exit",

		Stdin:  os.Stdin,
		Stdout: out,
		Stderr: os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	return &readlineEditor{instance: instance, out: out}, nil
}

// Line implements LineEditor.Line
func (r *readlineEditor) Line(prompt string) (string, error) {
	if r.currentPrompt != prompt {
		r.currentPrompt = prompt
		r.instance.SetPrompt(prompt)
	}

	s, err := r.instance.Readline()
	switch err {
	case nil:
		return s, nil
	case io.EOF:
		return "", ErrEnd
	case readline.ErrInterrupt:
		return "", ErrInterrupt
	default:
		return "", err
	}
}

// LineHidden implements LineEditor.LineHidden
func (r *readlineEditor) LineHidden(prompt string) (string, error) {
	byt, err := r.instance.ReadPassword(prompt)
	switch err {
	case nil:
		return string(byt), nil
	case io.EOF:
		return "", ErrEnd
	case readline.ErrInterrupt:
		return "", ErrInterrupt
	default:
		return "", err
	}
}

// Close the readline editor
func (r *readlineEditor) Close() error {
	return r.instance.Close()
}
