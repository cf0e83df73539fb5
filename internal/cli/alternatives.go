package cli

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rx-resolver/internal/entity"
)

var alternativesCmd = &cobra.Command{
	Use:     "alternatives",
	Aliases: []string{"alt"},
	Short:   "Manage substitute links between medicines",
}

var alternativesAddCmd = &cobra.Command{
	Use:   "add <medicine> <alternative>",
	Short: "Record that <alternative> may substitute for <medicine>",
	Args:  cobra.ExactArgs(2),
	RunE:  runAlternativesAdd,
}

var alternativesRemoveCmd = &cobra.Command{
	Use:   "remove <medicine> <alternative>",
	Short: "Remove a substitute link",
	Args:  cobra.ExactArgs(2),
	RunE:  runAlternativesRemove,
}

var alternativesListCmd = &cobra.Command{
	Use:   "list <medicine>",
	Short: "List the substitutes of a medicine, first one is suggested",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlternativesList,
}

func init() {
	alternativesCmd.AddCommand(alternativesAddCmd, alternativesRemoveCmd, alternativesListCmd)
	rootCmd.AddCommand(alternativesCmd)
}

// linkEnds looks up both medicines by exact name.
func linkEnds(cmd *cobra.Command, a *app, medicine, alternative string) (*entity.Medicine, *entity.Medicine, error) {
	from, err := a.inventory.GetMedicineByName(cmd.Context(), medicine)
	if err != nil {
		return nil, nil, err
	}
	to, err := a.inventory.GetMedicineByName(cmd.Context(), alternative)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func runAlternativesAdd(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	from, to, err := linkEnds(cmd, a, args[0], args[1])
	if err != nil {
		return err
	}
	_, created, err := a.inventory.AddAlternative(cmd.Context(), from.ID, to.ID)
	if err != nil {
		return err
	}
	if created {
		cmd.Printf("Linked %s -> %s\n", from.Name, to.Name)
	} else {
		cmd.Printf("%s -> %s already linked\n", from.Name, to.Name)
	}
	return nil
}

func runAlternativesRemove(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	from, to, err := linkEnds(cmd, a, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.inventory.RemoveAlternative(cmd.Context(), from.ID, to.ID); err != nil {
		return err
	}
	cmd.Printf("Removed %s -> %s\n", from.Name, to.Name)
	return nil
}

func runAlternativesList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openDB(cmd.Context()); err != nil {
		return err
	}
	m, err := a.inventory.GetMedicineByName(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	snap, err := a.inventory.Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	alts := snap.Alternatives(m.ID)
	if len(alts) == 0 {
		cmd.Printf("No alternatives for %s.\n", m.Name)
		return nil
	}
	for i, alt := range alts {
		cmd.Printf("  [%d] %-28s stock %d\n", i+1, alt.Name, alt.StockQuantity)
	}
	return nil
}
