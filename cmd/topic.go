package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/etnz/reckon/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	list bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the user manual" }
func (*topicCmd) Usage() string {
	return `rk topic [-list] [<topic>...]

  Prints the manual topics one after the other, or the manual index
  without a topic. '*' prints the whole manual.

  Topics: ` + strings.Join(docs.Topics(), ", ") + `
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "list the topics with their title")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		var b strings.Builder
		b.WriteString("# Topics\n\n")
		for _, topic := range docs.Topics() {
			fmt.Fprintf(&b, "* %s: %s\n", topic, docs.Title(topic))
		}
		printMarkdown(b.String())
		return subcommands.ExitSuccess
	}

	topics := f.Args()
	if len(topics) == 0 {
		topics = []string{"readme"}
	}
	for _, topic := range topics {
		if topic != "*" && topic != "readme" && !slices.Contains(docs.Topics(), topic) {
			fmt.Fprintf(os.Stderr, "unknown topic %q, want one of %s\n", topic, strings.Join(docs.Topics(), ", "))
			return subcommands.ExitUsageError
		}
	}

	manual, err := docs.GetTopics(topics...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read the manual: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(manual)
	return subcommands.ExitSuccess
}
