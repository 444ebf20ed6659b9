package commands

import (
	contextutils "auscultify/internal/utils"

	"github.com/spf13/cobra"
)

// ManifestCommands returns the commands that maintain the manifest files under the audio root
func ManifestCommands(env *Env) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Audio manifest commands",
	}

	manifestCmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate categorias.txt and rutaAudios.txt from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifestService, err := env.Container.GetManifestService()
			if err != nil {
				return err
			}
			categories, audios, err := manifestService.Rebuild(cmd.Context())
			if err != nil {
				return contextutils.WrapError(err, "failed to rebuild manifests")
			}
			env.printf("Wrote %d categories and %d audio paths under %s\n", categories, audios, env.Config.Storage.AudioRoot)
			return nil
		},
	})

	return manifestCmd
}
