package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <library-id>",
		Short: "List every indexed version of a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, cleanup, err := setupLogging(cfg)
			if err != nil {
				return exitErr(4, err)
			}
			defer cleanup()

			rel, vec, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer rel.Close()
			defer vec.Close()

			versions, err := rel.ListVersions(cmd.Context(), args[0])
			if err != nil {
				return exitErr(4, err)
			}
			if len(versions) == 0 {
				fmt.Println("no versions indexed for", args[0])
				return nil
			}
			for _, v := range versions {
				latest := ""
				if v.IsLatest {
					latest = " (latest)"
				}
				indexed := time.UnixMilli(v.IndexedMs).Format(time.RFC3339)
				fmt.Printf("%s%s  %d chunks  indexed %s\n", v.VersionString, latest, v.DocumentCount, indexed)
			}
			return nil
		},
	}
	return cmd
}
