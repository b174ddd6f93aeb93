// Command rk reconciles transfers between bank accounts and computes
// capital gains.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/reckon"
	"github.com/etnz/reckon/cmd"
	"github.com/etnz/reckon/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	// Answers shell completion requests, and exits, when COMP_LINE is set.
	completion().Complete(name)

	cmd.Init()

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()

	if sub := flag.Arg(0); sub != "" && !registered(commander, sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	os.Exit(int(commander.Execute(context.Background())))
}

// registered reports whether name is a built-in subcommand.
func registered(c *subcommands.Commander, name string) (found bool) {
	c.VisitCommands(func(_ *subcommands.CommandGroup, sc subcommands.Command) {
		if sc.Name() == name {
			found = true
		}
	})
	return found
}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	banks := predict.Set(append(reckon.Presets(), "auto", "canonical"))
	policies := predict.Set{reckon.FIFO.String(), reckon.LIFO.String(), reckon.HighestCost.String()}
	statements := predict.Files("*.csv")
	yamls := predict.Files("*.yaml")

	return &complete.Command{
		Sub: map[string]*complete.Command{
			"reconcile": {
				Flags: map[string]complete.Predictor{
					"a":          statements,
					"accept":     predict.Something,
					"reject":     predict.Something,
					"currency":   predict.Something,
					"config":     yamls,
					"window":     predict.Something,
					"tolerance":  predict.Something,
					"workers":    predict.Something,
					"json":       predict.Nothing,
					"gst":        predict.Nothing,
					"gst-config": yamls,
				},
			},
			"normalize": {
				Flags: map[string]complete.Predictor{
					"bank":     banks,
					"account":  predict.Something,
					"currency": predict.Something,
				},
				Args: statements,
			},
			"gains": {
				Flags: map[string]complete.Predictor{
					"rules":        predict.Or(predict.Set{"AU"}, yamls),
					"format":       yamls,
					"policy":       policies,
					"json":         predict.Nothing,
					"skip-records": predict.Nothing,
				},
				Args: statements,
			},
			"topic": {
				Flags: map[string]complete.Predictor{"list": predict.Nothing},
				Args:  predict.Set(append(docs.Topics(), "*")),
			},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
		Flags: map[string]complete.Predictor{
			"plain": predict.Nothing,
			"wrap":  predict.Something,
		},
	}
}
