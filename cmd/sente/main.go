// Command sente runs the engine behind a small interactive console: a
// stand-in for a full GTP front end that drives the Player API directly.
//
// Commands:
//
//	play <b|w> <vertex|pass>   place a move (vertex in GTP style, e.g. D4)
//	genmove <b|w>              search and play the engine move
//
// The color word of play and genmove is not read: moves alternate, and the
// side to move always follows from the current tree root.
//	candidates                 show the current root candidates
//	showboard                  render the position
//	boardsize <n> | komi <f>   update the configuration and clear the board
//	clear                      reset to an empty board
//	quit
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/sente-go/sente/internal/board"
	"github.com/sente-go/sente/internal/nn"
	"github.com/sente-go/sente/internal/parameters"
	"github.com/sente-go/sente/internal/search"
	"github.com/sente-go/sente/internal/ui/cli"
)

var (
	flagConfig = flag.String("config", "",
		"Engine configuration, comma-separated key=value pairs, e.g. "+
			"\"boardsize=9,komi=7.5,visits=400,threads=4\".")
	flagColor = flag.Bool("color", true, "Colorized board rendering.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg := must.M1(parameters.FromParams(parameters.NewFromConfigString(*flagConfig)))
	builder := func(gpu int, halfPrecision bool) (nn.Model, error) {
		// Device model runtimes plug in here; this build ships the uniform
		// fallback network.
		return nn.UniformModel{}, nil
	}
	processor := must.M1(nn.NewProcessor(builder, cfg.GPUs, 1, cfg.BatchSize, cfg.FP16))
	defer func() { must.M(processor.Close()) }()

	player := search.NewPlayer(cfg, processor)
	defer player.Terminate()

	ui := cli.New(os.Stdout, *flagColor)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("sente console; \"quit\" to exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return
		case "clear":
			player.Initialize()
		case "boardsize":
			if len(fields) < 2 {
				fmt.Println("? usage: boardsize <n>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 2 || n > 19 {
				fmt.Println("? boardsize must be within [2, 19]")
				continue
			}
			cfg.BoardSize = n
			player.Initialize()
		case "komi":
			if len(fields) < 2 {
				fmt.Println("? usage: komi <f>")
				continue
			}
			f, err := strconv.ParseFloat(fields[1], 32)
			if err != nil {
				fmt.Println("? bad komi")
				continue
			}
			cfg.Komi = float32(f)
			player.Initialize()
		case "play":
			if len(fields) < 3 {
				fmt.Println("? usage: play <b|w> <vertex|pass>")
				continue
			}
			pos, err := parseVertex(fields[2], cfg.BoardSize)
			if err != nil {
				fmt.Printf("? %v\n", err)
				continue
			}
			if captured := player.Play(pos.X(), pos.Y()); captured < 0 {
				fmt.Println("? illegal move")
			} else {
				ui.PrintBoard(player.Root().Board())
			}
		case "genmove":
			genmove(player, ui)
		case "candidates":
			ui.PrintCandidates(player.GetCandidates())
		case "showboard":
			ui.PrintBoard(player.Root().Board())
		default:
			fmt.Printf("? unknown command %q\n", fields[0])
		}
	}
}

func genmove(player *search.Player, ui *cli.UI) {
	cfg := player.Config()
	player.StartEvaluation(false, cfg.UseUcb1, 0, cfg.Temperature, cfg.Randomness)
	visits, playouts := player.WaitEvaluation(cfg.Visits, cfg.Playouts,
		time.Duration(cfg.TimeLimit*float64(time.Second)), true)
	klog.V(1).Infof("search finished with %d visits, %d playouts", visits, playouts)

	if player.ShouldResign() {
		fmt.Println("= resign")
		return
	}
	candidates := player.GetCandidates()
	if len(candidates) == 0 {
		fmt.Println("= pass")
		return
	}
	best := candidates[0]
	if cfg.Criterion == parameters.CriterionLCB {
		// ValueLCB is side-relative already: higher is better for the mover.
		for _, c := range candidates[1:] {
			if c.LCB > best.LCB {
				best = c
			}
		}
	}
	player.Play(best.Pos.X(), best.Pos.Y())
	fmt.Printf("= %s\n", cli.FormatPos(best.Pos))
	ui.PrintBoard(player.Root().Board())
	player.Ponder()
}

func parseVertex(s string, size int) (board.Pos, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "PASS" {
		return board.PassPos, nil
	}
	if len(s) < 2 {
		return board.PassPos, errors.Errorf("bad vertex %q", s)
	}
	letters := "ABCDEFGHJKLMNOPQRST"
	x := strings.IndexByte(letters, s[0])
	row, err := strconv.Atoi(s[1:])
	if err != nil || x < 0 || x >= size || row < 1 || row > size {
		return board.PassPos, errors.Errorf("bad vertex %q", s)
	}
	return board.Pos{int8(x), int8(row - 1)}, nil
}
