package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gwalerts/internal/storage"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently archived notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database == "" {
				return errors.New("no archive database configured (set 'database' in the config)")
			}

			store, err := storage.NewSQLite(cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListNotices(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no notices archived yet")
				return nil
			}
			for _, r := range records {
				skymapNote := "-"
				if r.HasSkymap {
					skymapNote = r.Path
				}
				fmt.Printf("%s  %-12s %-12s far=%.3g  %s\n",
					r.ReceivedAt.Format(time.RFC3339), r.SupereventID, r.AlertType, r.FAR, skymapNote)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum notices to show (0 for all)")
	return cmd
}
