// Package cmd command line
package cmd

import (
	"github.com/drive-gallery/gallery/cmd/tui"

	"github.com/Laisky/errors/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/spf13/cobra"
)

var browseCMD = &cobra.Command{
	Use:   "browse",
	Short: "Browse the catalog interactively",
	Long: `Launch an interactive terminal browser over a running gallery API.

Pick a folder, then page through its files. Pages are addressed by
server cursors, so jumping to a far page walks forward once and is
instant afterwards.

Keys:
  n/p      next / previous page
  g        jump to a page number
  f        cycle the type filter (all / image / video)
  esc      back to the folder picker
  q        quit`,
	Args: gcmd.NoExtraArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		apiURL, err := cmd.Flags().GetString("api-url")
		if err != nil {
			return errors.Wrap(err, "get api-url flag")
		}
		pageSize, err := cmd.Flags().GetInt("page-size")
		if err != nil {
			return errors.Wrap(err, "get page-size flag")
		}
		if pageSize < 1 {
			pageSize = 20
		}

		return tui.Run(apiURL, pageSize)
	},
}

func init() {
	browseCMD.Flags().String("api-url", "http://localhost:8080", "gallery API base URL")
	browseCMD.Flags().Int("page-size", 20, "files per page")

	rootCMD.AddCommand(browseCMD)
}
