package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meko-christian/mail-watcher/internal/store"
	"github.com/meko-christian/mail-watcher/internal/web"
)

var recentLimit int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the most recently recorded subjects, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.OpenReadOnly(viper.GetString("store.path"))
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()

		subjects, err := st.Recent(ctx, recentLimit)
		if err != nil {
			return err
		}

		total, err := st.Count(ctx)
		if err != nil {
			return err
		}

		for i, subject := range subjects {
			fmt.Printf("%3d  %s\n", i+1, subject)
		}
		fmt.Printf("(%d of %d subjects)\n", len(subjects), total)

		return nil
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", web.DefaultLimit, "Number of subjects to print")
}
