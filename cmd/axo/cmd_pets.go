package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"axolotl/cmd/axo/ui"
	"axolotl/cmd/axo/views"
	"axolotl/internal/app"
	"axolotl/internal/petdetail"
	"axolotl/internal/types"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	petsJSON      bool
	petsDetails   bool
	petColor      string
	petHunger     int
	petHappiness  int
	watchCount    int
	detailWorkers = 4
)

// petsCmd groups pet commands
var petsCmd = &cobra.Command{
	Use:   "pets",
	Short: "Manage your axolotls",
	Long: `List, create, update and delete your axolotls, or act on one.

Actions:
  FEED   lowers hunger
  PLAY   raises happiness, costs stamina
  TRAIN  earns XP, costs stamina
  REST   restores stamina`,
}

var petsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your axolotls",
	Args:  cobra.NoArgs,
	RunE:  runPetsList,
}

var petsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one axolotl",
	Args:  cobra.ExactArgs(1),
	RunE:  runPetsShow,
}

var petsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Adopt a new axolotl",
	Long: `Creates an axolotl with the given name and color.

Colors: pink, black, white, orange.

Example:
  axo pets create Spike --color pink`,
	Args: cobra.ExactArgs(1),
	RunE: runPetsCreate,
}

var petsUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Set hunger and happiness directly",
	Args:  cobra.ExactArgs(1),
	RunE:  runPetsUpdate,
}

var petsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Release an axolotl",
	Args:  cobra.ExactArgs(1),
	RunE:  runPetsDelete,
}

var petsActCmd = &cobra.Command{
	Use:   "act [id] [action]",
	Short: "Feed, play with, train or rest an axolotl",
	Args:  cobra.ExactArgs(2),
	RunE:  runPetsAct,
}

// petsWatchCmd polls one pet until interrupted
var petsWatchCmd = &cobra.Command{
	Use:   "watch [id]",
	Short: "Print an axolotl's stats as they change",
	Long: `Re-reads the axolotl every poll.interval (default 5s) and prints a line
each time. Stops on Ctrl+C or after --count updates.`,
	Args: cobra.ExactArgs(1),
	RunE: runPetsWatch,
}

func init() {
	petsListCmd.Flags().BoolVar(&petsDetails, "details", false, "fetch every pet's full stats")
	for _, c := range []*cobra.Command{petsListCmd, petsShowCmd, petsCreateCmd, petsUpdateCmd, petsActCmd} {
		c.Flags().BoolVar(&petsJSON, "json", false, "print JSON")
	}
	petsCreateCmd.Flags().StringVarP(&petColor, "color", "c", "", "pink, black, white or orange")
	petsUpdateCmd.Flags().IntVar(&petHunger, "hunger", 0, "hunger 0..100")
	petsUpdateCmd.Flags().IntVar(&petHappiness, "happiness", 0, "happiness 0..100")
	petsWatchCmd.Flags().IntVarP(&watchCount, "count", "n", 0, "stop after n updates (0 = until interrupted)")

	petsCmd.AddCommand(petsListCmd, petsShowCmd, petsCreateCmd, petsUpdateCmd, petsDeleteCmd, petsActCmd, petsWatchCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid pet id %q", s)
	}
	return id, nil
}

func requireSession(a *app.App) error {
	if !a.Session.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPet(w io.Writer, p types.Pet) {
	fmt.Fprintf(w, "#%d %s\n", p.ID, views.PetLine(p))
	fmt.Fprintf(w, "  hunger %3d  stamina %3d  happiness %3d  xp %d\n", p.Hunger, p.Stamina, p.Happiness, p.XPInLevel)
}

func runPetsList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		pets, err := a.Client.ListPets(ctx)
		if err != nil {
			return err
		}
		if petsDetails {
			if pets, err = fetchDetails(ctx, a, pets); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if petsJSON {
			return printJSON(out, pets)
		}
		if len(pets) == 0 {
			fmt.Fprintln(out, "No axolotls yet. Create one with `axo pets create`.")
			return nil
		}
		for _, p := range pets {
			if petsDetails {
				printPet(out, p)
				continue
			}
			fmt.Fprintf(out, "#%d %s\n", p.ID, views.PetLine(p))
		}
		return nil
	})
}

// fetchDetails re-reads every pet concurrently, keeping list order.
func fetchDetails(ctx context.Context, a *app.App, pets []types.Pet) ([]types.Pet, error) {
	out := make([]types.Pet, len(pets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)
	for i, p := range pets {
		g.Go(func() error {
			full, err := a.Client.GetPet(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("pet %d: %w", p.ID, err)
			}
			out[i] = *full
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func runPetsShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		p, err := a.Client.GetPet(ctx, id)
		if err != nil {
			return err
		}
		if petsJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		printPet(cmd.OutOrStdout(), *p)
		return nil
	})
}

func runPetsCreate(cmd *cobra.Command, args []string) error {
	color, err := types.ParseColor(petColor)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		p, err := a.Client.CreatePet(ctx, types.NewPet{Name: args[0], Color: color})
		if err != nil {
			return err
		}
		if petsJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Nice to meet you, %s! (#%d)\n", ui.Sanitize(p.Name), p.ID)
		return nil
	})
}

func runPetsUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	upd := types.PetUpdate{Hunger: petHunger, Happiness: petHappiness}
	if err := upd.Validate(); err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		p, err := a.Client.UpdatePet(ctx, id, upd)
		if err != nil {
			return err
		}
		if petsJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		printPet(cmd.OutOrStdout(), *p)
		return nil
	})
}

func runPetsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		if err := a.Client.DeletePet(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Released #%d.\n", id)
		return nil
	})
}

func runPetsAct(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	action, err := types.ParseAction(args[1])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		res, err := a.Client.Act(ctx, id, action)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if petsJSON {
			return printJSON(out, res)
		}
		if notice := res.Notice(); notice != "" {
			fmt.Fprintln(out, ui.Sanitize(notice))
		}
		p := res.Pet
		if p == nil {
			if p, err = a.Client.GetPet(ctx, id); err != nil {
				return err
			}
		}
		printPet(out, *p)
		return nil
	})
}

func runPetsWatch(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := requireSession(a); err != nil {
			return err
		}
		return watchPet(ctx, cmd.OutOrStdout(), a.NewPetDetail(id), watchCount)
	})
}

// watchPet prints one line per fetched snapshot or error until ctx ends or
// count lines were printed.
func watchPet(ctx context.Context, w io.Writer, p *petdetail.Presenter, count int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		printed int
		last    string
	)
	unsub := p.OnUpdate(func(v petdetail.View) {
		var line string
		switch {
		case v.Err != "":
			line = "error: " + ui.Sanitize(v.Err)
		case v.HasPet:
			line = fmt.Sprintf("%s — hunger %d stamina %d happiness %d", views.PetLine(v.Pet), v.Pet.Hunger, v.Pet.Stamina, v.Pet.Happiness)
		default:
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if count > 0 && printed >= count {
			return
		}
		if line == last && count == 0 {
			return
		}
		last = line
		printed++
		fmt.Fprintf(w, "%s %s\n", time.Now().Format("15:04:05"), line)
		if count > 0 && printed >= count {
			cancel()
		}
	})
	defer unsub()

	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	return nil
}
