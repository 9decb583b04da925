// Command holotape manages holotape image files outside the emulator:
// listing, appending, and erasing files on a tape image, standing in
// for the tapemanager CLI named out of scope in spec.md §1.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"robco/holotape"
)

func main() {
	root := &cobra.Command{
		Use:   "holotape",
		Short: "inspect and modify robco-processor holotape images",
	}
	root.AddCommand(newListCmd())
	root.AddCommand(newAppendCmd())
	root.AddCommand(newEraseCmd())
	root.AddCommand(newCreateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "holotape:", err)
		os.Exit(1)
	}
}

func openDeck(path string) (*holotape.Deck, error) {
	d := holotape.NewDeck()
	if err := d.Insert(path); err != nil {
		return nil, fmt.Errorf("insert %s: %w", path, err)
	}
	return d, nil
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create TAPE",
		Short: "create a new, blank tape image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			d, err := openDeck(args[0])
			if err != nil {
				return err
			}
			return d.Eject()
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list TAPE",
		Short: "list the files stored on a tape image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeck(args[0])
			if err != nil {
				return err
			}
			defer d.Eject()
			names, err := d.List()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newAppendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "append TAPE FILE",
		Short: "append a local file onto a tape image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeck(args[0])
			if err != nil {
				return err
			}
			defer d.Eject()
			return d.Append(args[1])
		},
	}
}

func newEraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "erase TAPE",
		Short: "blank every block on a tape image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeck(args[0])
			if err != nil {
				return err
			}
			defer d.Eject()
			return d.Erase()
		},
	}
}
