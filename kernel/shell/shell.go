// Package shell provides the interactive prompt shown once the kernel has
// finished booting.
package shell

import (
	"io"

	"kernel32/kernel"
	"kernel32/kernel/kfmt"
)

var errEmptyPrompt = &kernel.Error{Module: "shell", Kind: kernel.ConfigurationError, Message: "prompt must not be empty"}

// Shell writes its prompt to an output device. Input handling is attached
// once a keyboard driver is available.
type Shell struct {
	out    io.Writer
	prompt string
}

// Init binds the shell to w and prints the prompt.
func (sh *Shell) Init(w io.Writer, prompt string) *kernel.Error {
	if len(prompt) == 0 {
		return errEmptyPrompt
	}

	sh.out, sh.prompt = w, prompt
	sh.Prompt()
	return nil
}

// Prompt prints the prompt on a fresh line.
func (sh *Shell) Prompt() {
	kfmt.Fprintf(sh.out, "\n%s", sh.prompt)
}
