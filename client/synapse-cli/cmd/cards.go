package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type card struct {
	ID        string   `json:"card_id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Category  []string `json:"category"`
	SourceURL string   `json:"source_url"`
	Note      string   `json:"note"`
}

var (
	cardNote  string
	listSkip  int
	listLimit int
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Create and list knowledge cards",
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Create a card from a web page or video link",
	Long:  "Create a card from a web page or video link. Without a URL an empty placeholder card is created.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src string
		if len(args) == 1 {
			src = args[0]
		}
		var c card
		if err := newClient().addCard(src, cardNote, &c); err != nil {
			return err
		}
		printCard(cmd.OutOrStdout(), c)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload [file-path]",
	Short: "Create a card from a PDF or DOCX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var c card
		if err := newClient().uploadCard(args[0], cardNote, &c); err != nil {
			return err
		}
		printCard(cmd.OutOrStdout(), c)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your cards, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cards []card
		if err := newClient().listCards(listSkip, listLimit, &cards); err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tTAGS")
		for _, c := range cards {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Title, strings.Join(c.Category, ","), strings.Join(c.Tags, ", "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(cardsCmd)
	cardsCmd.AddCommand(addCmd, uploadCmd, listCmd)
	for _, c := range []*cobra.Command{addCmd, uploadCmd} {
		c.Flags().StringVar(&cardNote, "note", "", "personal note stored with the card")
	}
	listCmd.Flags().IntVar(&listSkip, "skip", 0, "number of cards to skip")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of cards")
}

func printCard(w io.Writer, c card) {
	fmt.Fprintf(w, "Card created!\nID:       %s\nTitle:    %s\n", c.ID, c.Title)
	if len(c.Category) > 0 {
		fmt.Fprintf(w, "Category: %s\n", strings.Join(c.Category, ", "))
	}
	if len(c.Tags) > 0 {
		fmt.Fprintf(w, "Tags:     %s\n", strings.Join(c.Tags, ", "))
	}
	if c.SourceURL != "" {
		fmt.Fprintf(w, "Source:   %s\n", c.SourceURL)
	}
}
