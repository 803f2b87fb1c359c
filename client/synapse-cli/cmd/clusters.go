package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type cluster struct {
	ID      string   `json:"cluster_id"`
	Topic   string   `json:"topic_name"`
	CardIDs []string `json:"knowledge_card_ids"`
}

type reclusterOutcome struct {
	Status       string `json:"status"`
	ClusterCount int    `json:"cluster_count"`
	Eligible     int    `json:"eligible_cards"`
}

var clustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Browse and recompute topic clusters",
}

var clustersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your topic clusters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var clusters []cluster
		if err := newClient().listClusters(&clusters); err != nil {
			return err
		}
		if len(clusters) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No clusters yet. Run: synapse-cli clusters recompute")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOPIC\tCARDS\tID")
		for _, c := range clusters {
			fmt.Fprintf(w, "%s\t%d\t%s\n", c.Topic, len(c.CardIDs), c.ID)
		}
		return w.Flush()
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute your topic clusters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var out reclusterOutcome
		queued, err := newClient().recompute(&out)
		if err != nil {
			return err
		}
		switch {
		case queued:
			fmt.Fprintln(cmd.OutOrStdout(), "Recluster queued. Run 'synapse-cli clusters list' in a moment.")
		case out.Status == "insufficient_data":
			fmt.Fprintf(cmd.OutOrStdout(), "Not enough cards to cluster yet (%d with embeddings).\n", out.Eligible)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "Recomputed %d clusters from %d cards.\n", out.ClusterCount, out.Eligible)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clustersCmd)
	clustersCmd.AddCommand(clustersListCmd, recomputeCmd)
}
