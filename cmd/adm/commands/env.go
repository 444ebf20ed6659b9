// Package commands implements the adm subcommands.
package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"auscultify/internal/config"
	"auscultify/internal/di"
	"auscultify/internal/observability"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// AnnotationNoDatabase marks commands that run without opening the connection pool
const AnnotationNoDatabase = "adm.no_database"

// Env is shared by every subcommand. Container is filled in by the root command's
// PersistentPreRunE, so commands must read it at run time, not at construction.
type Env struct {
	Config     *config.Config
	Logger     *observability.Logger
	Container  di.ServiceContainerInterface
	Out        io.Writer
	ReadLine   func(prompt string) (string, error)
	ReadSecret func(prompt string) (string, error)
}

// NeedsDatabase reports whether cmd has to open the pool before it runs. The bare root,
// cobra's help and completion commands, and anything annotated with AnnotationNoDatabase
// run without it.
func NeedsDatabase(cmd *cobra.Command) bool {
	if !cmd.HasParent() {
		return false
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "completion" {
			return false
		}
		if _, ok := c.Annotations[AnnotationNoDatabase]; ok {
			return false
		}
	}
	return true
}

// StdinLine prompts on stdout and reads one echoed line from stdin
func StdinLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// TerminalSecret prompts on stdout and reads a line from the terminal without echo
func TerminalSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

func (e *Env) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(e.Out, format, args...)
}
