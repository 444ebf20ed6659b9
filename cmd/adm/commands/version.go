package commands

import (
	"auscultify/internal/version"

	"github.com/spf13/cobra"
)

// VersionCommand prints the build metadata
func VersionCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{AnnotationNoDatabase: "true"},
		Run: func(_ *cobra.Command, _ []string) {
			env.printf("%s\n", version.Get("auscultify-adm"))
		},
	}
}
